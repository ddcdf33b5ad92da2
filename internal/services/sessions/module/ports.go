package module

import "triage/internal/services/sessions/domain"

// Ports exposes the sessions module surface for cross wiring
type Ports struct {
	Registry domain.RegistryPort
	Sweeper  domain.SweeperPort
	Count    func() int
}
