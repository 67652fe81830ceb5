package core

import "errors"

var (
	// ErrPresenceMiss is reported when a command arrives from a connection that is no longer registered.
	ErrPresenceMiss = errors.New("connection not registered")
	// ErrPoolExhausted is reported when every identity slot is taken and a fallback number was issued.
	ErrPoolExhausted = errors.New("identity pool exhausted")
	// ErrHubClosed is returned when submitting work to a hub that has stopped.
	ErrHubClosed = errors.New("hub closed")
)
