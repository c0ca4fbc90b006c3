package amqp

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by Connector.
var (
	// ErrNotInitialized is returned by Start when called before Initialize.
	ErrNotInitialized = errors.New("amqp: connector not initialized")

	// ErrAlreadyRunning is returned by Start when called twice.
	ErrAlreadyRunning = errors.New("amqp: connector already running")

	// ErrClosed is returned by Publish once Close has completed.
	ErrClosed = errors.New("amqp: connector closed")

	// ErrInvalidDemographic is returned by resolveRoute for a demographic
	// that has no routing representation on the broker (LOCAL never reaches
	// the connector; anything else is a programmer error). Publish does not
	// return it: the producer goroutine drops such a message unpublished.
	ErrInvalidDemographic = errors.New("amqp: demographic has no broker routing")
)

// errConfigField wraps errInvalidConfig naming the missing field.
var errInvalidConfig = errors.New("amqp: invalid configuration")

func errConfigField(field string) error {
	return fmt.Errorf("%w: missing %s", errInvalidConfig, field)
}
