package handlers

import (
	"context"
	"net/http"
)

// HealthProbe is the liveness slice of the storage gateway.
type HealthProbe interface {
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
}

type HealthHandler struct {
	probe HealthProbe
}

func NewHealthHandler(probe HealthProbe) *HealthHandler {
	return &HealthHandler{probe: probe}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	connected := false
	if h.probe != nil {
		if err := h.probe.Ping(r.Context()); err == nil {
			connected = true
			_ = h.probe.EnsureIndexes(r.Context())
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                connected,
		"mongodb_connected": connected,
		"service":           "ingestion_pipeline",
	})
}
