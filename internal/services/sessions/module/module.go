// Package module wires the session registry and its websocket transport
package module

import (
	"time"

	"triage/internal/modkit"
	"triage/internal/modkit/httpkit"
	sesshttp "triage/internal/services/sessions/http"
	"triage/internal/services/sessions/service"
)

// Module defines the sessions module
type Module struct {
	deps  modkit.Deps
	svc   *service.Service
	ports Ports
}

// New constructs the sessions module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("sessions"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)
	svc := service.New(deps, service.Config{
		MaxSessions: cfg.MaxSessions,
		Buffer:      cfg.Buffer,
		IdleTimeout: cfg.IdleTimeout,
		PingEvery:   cfg.PingEvery,
	})

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Registry: svc, Sweeper: svc, Count: svc.Count}
	return m
}

// MountRoutes mounts the websocket endpoint. Callers must hand in a router
// without timeout or compression middleware
func (m *Module) MountRoutes(r httpkit.Router) {
	sesshttp.Register(r, sesshttp.Deps{
		Registry:     m.svc,
		WriteTimeout: 10 * time.Second,
	})
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "sessions" }
