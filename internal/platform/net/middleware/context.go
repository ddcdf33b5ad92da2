package middleware

import (
	"net/http"

	"triage/internal/platform/logger"
	pnet "triage/internal/platform/net"
)

// Context copies the chi request id onto the logger context and records the
// caller ip so downstream code can key rate limits without touching headers
func Context(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := pnet.RequestID(ctx); reqID != "" {
			ctx = logger.WithRequest(ctx, reqID)
			w.Header().Set("X-Request-ID", reqID)
		}
		ctx = pnet.WithClientIP(ctx, pnet.PeerIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
