package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Pittuba/dash-mercado/internal/infrastructure"
)

// RuntimeSnapshotter reports the current runtime statistics
type RuntimeSnapshotter interface {
	Snapshot(ctx context.Context) infrastructure.RuntimeStats
}

// MetricsHandler serves a JSON view of the runtime next to the Prometheus
// endpoint
type MetricsHandler struct {
	runtime RuntimeSnapshotter
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(runtime RuntimeSnapshotter) *MetricsHandler {
	return &MetricsHandler{runtime: runtime}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/runtime", h.GetRuntime)
	return r
}

// GetRuntime returns the latest runtime snapshot
func (h *MetricsHandler) GetRuntime(w http.ResponseWriter, r *http.Request) {
	if h.runtime == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status": "disabled",
		})
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  StatusSuccess,
		"runtime": h.runtime.Snapshot(r.Context()),
	})
}
