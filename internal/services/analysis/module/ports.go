package module

import (
	"triage/internal/services/analysis/domain"
	sessdomain "triage/internal/services/sessions/domain"
)

// Wires are the inputs the analysis module needs from its neighbors,
// injected with modkit.WithPorts. Classifier overrides the default gemini
// backend, mainly for tests
type Wires struct {
	Registry   sessdomain.RegistryPort
	Classifier domain.ClassifierPort
}

// Ports exposes the analysis module surface for cross wiring
type Ports struct {
	Orchestrator domain.OrchestratorPort
}
