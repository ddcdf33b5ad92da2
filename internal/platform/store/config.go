package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	Redis RedisConfig
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int

	// Guard/boot knobs:
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}
