// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Default tuning constants.
const (
	defaultMailboxSize      = 256
	defaultSubscriberBuffer = 16
	defaultSendTimeout      = 2 * time.Second
	defaultMaxSendFailures  = 3
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file; ":memory:" for an
	// ephemeral store, empty to use the in-memory map store.
	DBPath string `koanf:"db_path"`

	// MailboxSize bounds each event's serialized mutation queue.
	MailboxSize int `koanf:"mailbox_size"`

	// SubscriberBuffer bounds each display connection's outbound queue.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// SendTimeoutMS caps a single delivery attempt to one subscriber.
	SendTimeoutMS int `koanf:"send_timeout_ms"`

	// MaxSendFailures is how many consecutive delivery failures a
	// subscriber survives before eviction.
	MaxSendFailures int `koanf:"max_send_failures"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		DBPath:           "tally.db",
		MailboxSize:      defaultMailboxSize,
		SubscriberBuffer: defaultSubscriberBuffer,
		SendTimeoutMS:    int(defaultSendTimeout / time.Millisecond),
		MaxSendFailures:  defaultMaxSendFailures,
	}
}

// SendTimeout returns the per-delivery timeout as a duration.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMS) * time.Millisecond
}
