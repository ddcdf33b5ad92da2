// Package http adapts the rate limiter into request middleware
package http

import (
	"net/http"
	"strconv"
	"time"

	phttp "triage/internal/platform/net/http"

	perr "triage/internal/platform/errors"
	"triage/internal/platform/logger"
	pnet "triage/internal/platform/net"
	"triage/internal/services/ratelimit/domain"
)

// Middleware gates requests per client ip. Denials get a 429 envelope with
// a Retry-After header. A limiter internal error fails open with a log line
// rather than blocking traffic
func Middleware(l domain.LimiterPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := pnet.ClientIP(r.Context())
			if key == "" {
				key = pnet.PeerIP(r)
			}

			d, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.C(r.Context()).Error().Err(err).Msg("rate limiter errored, failing open")
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				retry := int(d.RetryAfter / time.Second)
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				phttp.RespondError(w, r, perr.TooManyRequestsf(
					"rate limit exceeded, retry in %ds", retry,
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
