package module

import "triage/internal/services/ratelimit/domain"

// Ports exposes the ratelimit module surface for cross wiring
type Ports struct {
	Limiter domain.LimiterPort
	Health  domain.HealthPort
}
