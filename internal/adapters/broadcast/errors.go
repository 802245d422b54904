package broadcast

import "errors"

// Common broadcast errors.
var (
	// ErrBackpressure is returned when an event mailbox is full and the
	// mutation was not accepted.
	ErrBackpressure = errors.New("event mailbox is full")

	// ErrClosed is returned when the hub has been shut down.
	ErrClosed = errors.New("hub is closed")
)
