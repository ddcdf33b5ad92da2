package module

import (
	"time"

	"triage/internal/platform/config"
)

// Options tune the sessions module, read from SESSIONS_*
type Options struct {
	MaxSessions int
	Buffer      int
	IdleTimeout time.Duration
	PingEvery   time.Duration
}

// FromConfig loads Options with defaults
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SESSIONS_")
	return Options{
		MaxSessions: c.MayInt("MAX", 100),
		Buffer:      c.MayInt("BUFFER", 256),
		IdleTimeout: c.MayDuration("IDLE_TIMEOUT", 90*time.Second),
		PingEvery:   c.MayDuration("PING_EVERY", 30*time.Second),
	}
}
