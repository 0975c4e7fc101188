package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/app"
	"tone-coach-service/internal/observability"
	"tone-coach-service/internal/observability/metrics"
	"tone-coach-service/internal/schema"
	"tone-coach-service/internal/session"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, analyzer analysis.Analyzer, sessions *session.Manager) http.Handler {
	a := &api{
		app:       application,
		analyzer:  analyzer,
		sessions:  sessions,
		validator: schema.New(),
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", a.readiness)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", a.config)
		r.Post("/analyze", a.analyze)
		r.Post("/summary", a.summary)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.startSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Post("/events", a.sessionEvent)
				r.Get("/log", a.sessionLog)
				r.Post("/analyze", a.sessionAnalyze)
				r.Post("/end", a.endSession)
				r.Delete("/", a.removeSession)
				r.Get("/stream", a.stream)
			})
		})
	})

	return r
}
