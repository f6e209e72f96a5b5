package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger  *slog.Logger
	pingers map[string]Pinger
}

// NewHealthHandler creates a HealthHandler. pingers maps dependency names to
// their health probes; nil entries are skipped.
func NewHealthHandler(logger *slog.Logger, pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, pingers: pingers}
}

// HealthCheck responds with the server status and per-dependency probe
// results. Degraded dependencies flip the status but not the HTTP code, so
// load balancers keep routing while operators see the detail.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.pingers))
	for name, p := range h.pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			status = "degraded"
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
