package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"triage/internal/platform/net/middleware"
)

// CommonStack returns a baseline per module middleware slice
// compose with your own middleware as needed in main.
// note Timeout and Compress are applied here, so anything that hijacks the
// connection (websockets) must be mounted outside this stack
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.Context,

		// safety
		middleware.RecoverJSON,

		// cache / freshness
		middleware.NoCache(),

		// observability
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: 500 * time.Millisecond}),

		// cross-origin (tweak config in main if needed)
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.RedirectSlashes(),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}
