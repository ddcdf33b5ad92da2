// Package module wires the batch orchestrator, its classifier backend, and
// the submission endpoints
package module

import (
	"net/http"

	"triage/internal/adapters/classify/gemini"
	"triage/internal/adapters/extract"
	"triage/internal/core/document"
	"triage/internal/modkit"
	"triage/internal/modkit/httpkit"
	analysishttp "triage/internal/services/analysis/http"
	"triage/internal/services/analysis/service"
)

// Module defines the analysis module
type Module struct {
	deps   modkit.Deps
	svc    *service.Service
	policy document.Policy
	wires  Wires
	ports  Ports
	mws    []func(http.Handler) http.Handler
}

// New constructs the analysis module. Wires carry the session registry and
// the rate limit middleware, injected via modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("analysis"),
		modkit.WithPrefix("/analysis"),
	}, opts...)...)

	wires, _ := b.Ports.(Wires)

	cfg := FromConfig(deps.Cfg)
	classifier := wires.Classifier
	if classifier == nil {
		classifier = geminiClassifier{c: gemini.New(gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})}
	}

	svc := service.New(deps, service.Config{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
	}, classifier, wires.Registry)

	policy := document.DefaultPolicy()
	policy.MaxTexts = cfg.MaxTexts
	policy.MaxFiles = cfg.MaxFiles
	policy.MaxTextBytes = cfg.MaxTextBytes
	policy.MaxFileBytes = cfg.MaxFileBytes
	policy.MaxTotalBytes = cfg.MaxTotalBytes
	policy.Extractor = extract.NewRegistry()

	m := &Module{deps: deps, svc: svc, policy: policy, wires: wires, mws: b.Mw}
	m.ports = Ports{Orchestrator: svc}
	return m
}

// MountRoutes mounts the submission endpoints under /analysis, gated by any
// injected middleware (the rate limiter)
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route("/analysis", func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		analysishttp.Register(rr, analysishttp.Deps{
			Registry:     m.wires.Registry,
			Orchestrator: m.svc,
			Policy:       m.policy,
		})
	})
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "analysis" }
