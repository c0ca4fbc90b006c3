package dispatch

import "errors"

// Sentinel errors identifying the ways Register and Handle can fail.
var (
	// ErrNoListeners is returned by Handle when the event name has no
	// registered listener table entry at all.
	ErrNoListeners = errors.New("dispatch: no listeners registered for event")

	// ErrAlreadyLive is returned by Register after the dispatcher has been
	// marked live (i.e. after Start). It is a programmer error.
	ErrAlreadyLive = errors.New("dispatch: register called after dispatcher went live")

	// ErrListenerFailed wraps the first listener error encountered while
	// handling an envelope; remaining listeners for that envelope do not run.
	ErrListenerFailed = errors.New("dispatch: listener failed")
)
