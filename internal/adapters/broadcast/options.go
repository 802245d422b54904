package broadcast

import (
	"time"

	"github.com/rxnight/tally/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithMailboxSize sets the capacity of each per-event mailbox.
func WithMailboxSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.mailboxSize = size
		}
	}
}

// WithSendTimeout sets the per-subscriber delivery timeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(h *Hub) {
		if timeout > 0 {
			h.sendTimeout = timeout
		}
	}
}

// WithMaxSendFailures sets how many consecutive delivery failures a
// subscriber may accumulate before it is evicted.
func WithMaxSendFailures(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxSendFailures = n
		}
	}
}

// WithLogger sets the logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
