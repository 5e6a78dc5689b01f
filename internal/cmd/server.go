package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/mexc-futures/internal/metrics"
	"github.com/rickgao/mexc-futures/internal/recorder"
	"github.com/rickgao/mexc-futures/internal/stream"
)

// healthDeps is what the health endpoint reports on.
type healthDeps struct {
	StreamState func() stream.State
	SessionLive func() bool
	Recorder    func() recorder.Stats
	Ping        func(ctx context.Context) error // database ping, nil when disabled
}

// newRouter creates the HTTP handler for health checks and metrics.
func newRouter(deps healthDeps, metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		state := deps.StreamState()
		health.Components["stream"] = state.String()
		if state != stream.StateConnected && state != stream.StateAuthenticated {
			health.Status = "degraded"
		}

		health.Components["rest_session"] = map[string]bool{"active": deps.SessionLive()}

		if deps.Recorder != nil {
			stats := deps.Recorder()
			health.Components["recorder"] = map[string]any{
				"recorded": stats.Recorded,
				"flushes":  stats.Flushes,
				"errors":   stats.Errors,
				"buffered": stats.Buffer.Count,
				"dropped":  stats.Buffer.Dropped,
			}
		}

		if deps.Ping != nil {
			if err := deps.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	r.Method(http.MethodGet, metricsPath, metrics.Handler())

	return r
}
