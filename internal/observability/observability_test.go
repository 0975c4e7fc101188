package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"tone-coach-service/internal/observability/metrics"
)

func TestMux_Probes(t *testing.T) {
	ready := false
	mux := newMux(func() bool { return ready })

	tests := []struct {
		name     string
		path     string
		ready    bool
		wantCode int
	}{
		{"healthz", "/healthz", false, http.StatusOK},
		{"readyz not ready", "/readyz", false, http.StatusServiceUnavailable},
		{"readyz ready", "/readyz", true, http.StatusOK},
		{"metrics", "/metrics", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}
}

func TestHTTPMiddleware_PassesThroughStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMiddleware(metrics.DefaultMetrics))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
