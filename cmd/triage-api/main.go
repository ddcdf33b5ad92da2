// @title         Triage API
// @version       0.1.0
// @description   Document batch submission and real time classification delivery

package main

import (
	"context"

	"triage/internal/platform/config"
	"triage/internal/platform/logger"
	phttp "triage/internal/platform/net/http"
	"triage/internal/platform/store"

	"triage/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	rdCfg := root.Prefix("SERVICE_REDIS_") // rdCfg lives under SERVICE_REDIS_*

	// bring up logging early
	l := logger.Get()

	// open the platform store (redis counter seam, optional)
	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "triage-api",
			Redis: store.RedisConfig{
				Enabled:  rdCfg.MayBool("ENABLED", false),
				Addr:     rdCfg.MayString("ADDR", "127.0.0.1:6379"),
				Password: rdCfg.MayString("PASSWORD", ""),
				DB:       rdCfg.MayInt("DB", 0),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	ports := api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	// sweep idle sessions and ping live ones for the life of the server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ports.Sessions.Sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			l.Error().Err(err).Msg("session sweeper stopped")
		}
	}()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
