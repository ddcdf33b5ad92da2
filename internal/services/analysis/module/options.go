package module

import (
	"time"

	"triage/internal/platform/config"
)

// Options tune the analysis module, read from ANALYSIS_* and GEMINI_*
type Options struct {
	Workers    int64
	MaxRetries uint64
	RetryBase  time.Duration

	MaxTexts      int
	MaxFiles      int
	MaxTextBytes  int
	MaxFileBytes  int64
	MaxTotalBytes int64

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// FromConfig loads Options with defaults
func FromConfig(cfg config.Conf) Options {
	a := cfg.Prefix("ANALYSIS_")
	g := cfg.Prefix("GEMINI_")
	return Options{
		Workers:    a.MayInt64("WORKERS", 4),
		MaxRetries: uint64(a.MayInt("RETRIES", 2)),
		RetryBase:  a.MayDuration("RETRY_BASE", 500*time.Millisecond),

		MaxTexts:      a.MayInt("MAX_TEXTS", 20),
		MaxFiles:      a.MayInt("MAX_FILES", 20),
		MaxTextBytes:  a.MayInt("MAX_TEXT_BYTES", 100<<10),
		MaxFileBytes:  a.MayInt64("MAX_FILE_BYTES", 5<<20),
		MaxTotalBytes: a.MayInt64("MAX_TOTAL_BYTES", 100<<20),

		GeminiAPIKey:  g.MayString("API_KEY", ""),
		GeminiModel:   g.MayString("MODEL", ""),
		GeminiBaseURL: g.MayString("BASE_URL", ""),
	}
}
