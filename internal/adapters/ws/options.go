package ws

import "github.com/rxnight/tally/pkg/logger"

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithSendBuffer sets how many broadcast messages may queue per
// connection before the hub counts the client as slow.
func WithSendBuffer(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithLogger sets the logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
