package ws

import "errors"

// Common websocket errors.
var (
	// ErrClientClosed is returned when a message is pushed to a
	// connection that has already gone away.
	ErrClientClosed = errors.New("client connection closed")
)
