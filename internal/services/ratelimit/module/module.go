// Package module wires the rate limiter service over the platform store
package module

import (
	"net/http"

	"triage/internal/modkit"
	"triage/internal/modkit/httpkit"
	"triage/internal/services/ratelimit/domain"
	ratehttp "triage/internal/services/ratelimit/http"
	"triage/internal/services/ratelimit/repo"
	"triage/internal/services/ratelimit/service"
)

// Module defines the ratelimit module
type Module struct {
	deps  modkit.Deps
	svc   *service.Service
	ports Ports
}

// New constructs the ratelimit module. When the platform store has no redis
// the limiter runs on its local counter alone
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("ratelimit"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)

	var counter domain.CounterStore
	if deps.Store != nil && deps.Store.Redis != nil {
		counter = repo.NewCounter(deps.Store.Redis, cfg.Window)
	}

	svc := service.New(deps, service.Config{
		Limit:        cfg.Limit,
		Window:       cfg.Window,
		StoreTimeout: cfg.StoreTimeout,
	}, counter)

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Limiter: svc, Health: svc}
	return m
}

// Middleware returns the request gate for submission endpoints
func (m *Module) Middleware() func(http.Handler) http.Handler {
	return ratehttp.Middleware(m.svc)
}

// MountRoutes mounts nothing, the limiter is middleware only
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "ratelimit" }
