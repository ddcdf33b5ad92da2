// Package api provides the HTTP API for the application
package api

import (
	"triage/internal/platform/config"
	"triage/internal/platform/logger"
	phttp "triage/internal/platform/net/http"
	"triage/internal/platform/store"

	"triage/internal/modkit"
	"triage/internal/modkit/httpkit"
	"triage/internal/modkit/module"
	"triage/internal/modkit/swaggerkit"

	analysismod "triage/internal/services/analysis/module"
	metamod "triage/internal/services/api/meta/module"
	ratelimitmod "triage/internal/services/ratelimit/module"
	sessionsmod "triage/internal/services/sessions/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Ports exposes the cross wired module surfaces to the caller so main can
// run the session sweeper alongside the server
type Ports struct {
	Sessions sessionsmod.Ports
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) Ports {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg:   opt.Config,
		Store: opt.Store,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// Construct the sessions module first and extract its registry port
	sessions := sessionsmod.New(deps)
	sp := sessions.Ports().(sessionsmod.Ports)

	// The limiter gates submissions and is injected into analysis as middleware
	limiter := ratelimitmod.New(deps)

	analysis := analysismod.New(
		deps,
		modkit.WithPorts(analysismod.Wires{
			Registry: sp.Registry,
		}),
		modkit.WithMiddlewares(limiter.Middleware()),
	)

	lp := limiter.Ports().(ratelimitmod.Ports)

	mods := []module.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Wires{
			Sessions: sp.Count,
			Limiter:  lp.Health,
		})),
		limiter,
		analysis,
	}

	// websockets hijack the connection, so the sessions endpoint mounts at the
	// root router, outside the common stack's timeout and compression
	sessions.MountRoutes(r)
	module.Register(sessions.Name(), sessions.Ports())

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its prefix
			m.MountRoutes(api)
		}
	})

	return Ports{Sessions: sp}
}
