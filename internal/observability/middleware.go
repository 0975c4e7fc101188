// Package observability provides HTTP middleware and the metrics server.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/observability/metrics"
)

// HTTPMiddleware records request metrics and logs each request. Metrics are labeled
// by the matched route pattern rather than the raw path.
func HTTPMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			m.RecordHTTPRequest(route, status, duration.Seconds())

			log.Info().
				Str("method", r.Method).
				Str("route", route).
				Int("code", status).
				Dur("duration", duration).
				Str("requestId", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
