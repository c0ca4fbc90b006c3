package amqp

import "time"

const defaultConnectTimeoutSeconds = 5

// Config describes how to reach the broker and how this node identifies
// itself on it. Host and ExchangeName are required; Validate reports which
// one is missing. The other fields may be left at their zero values.
type Config struct {
	Host                  string
	User                  string
	Password              string
	VHost                 string
	ExchangeName          string
	ConnectTimeoutSeconds int
	SSL                   bool

	// NodeIdentifier names this node's private queue (node.<id>). Falls
	// back to the hostname reported by the operating system when empty;
	// that name is used as is and is not resolved to a fully qualified
	// domain name.
	NodeIdentifier string

	// WorkerProcesses sizes the sibling pool draining the consumer queue.
	WorkerProcesses int
}

// ConnectTimeout returns the configured connect timeout, defaulting to five
// seconds when unset.
func (c Config) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return defaultConnectTimeoutSeconds * time.Second
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Validate checks that the fields required to dial and declare topology are
// present.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errConfigField("nite.queue.amqp.host")
	case c.ExchangeName == "":
		return errConfigField("nite.queue.amqp.exchange_name")
	}
	return nil
}
