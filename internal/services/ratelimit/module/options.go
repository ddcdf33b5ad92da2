package module

import (
	"time"

	"triage/internal/platform/config"
)

// Options tune the ratelimit module, read from RATELIMIT_*
type Options struct {
	Limit        int64
	Window       time.Duration
	StoreTimeout time.Duration
}

// FromConfig loads Options with defaults
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("RATELIMIT_")
	return Options{
		Limit:        c.MayInt64("LIMIT", 10),
		Window:       c.MayDuration("WINDOW", time.Minute),
		StoreTimeout: c.MayDuration("STORE_TIMEOUT", 250*time.Millisecond),
	}
}
