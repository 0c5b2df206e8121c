// health_handler.go -- Health check handler for GET /health.
package install

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MGallo-Code/obol/internal/store"
)

// CheckHealth handles GET /health. It pings Postgres and Redis, returns per-dependency status.
// Unconfigured backends report "disabled". Returns 200 unless a configured backend is down (503).
func (h *InstallHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	postgresStatus := h.backendStatus(r, "postgres", h.DB)
	redisStatus := h.backendStatus(r, "redis", h.Queue)

	w.Header().Set("Content-Type", "application/json")
	if redisStatus == "error" || postgresStatus == "error" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}{postgresStatus, redisStatus})
}

func (h *InstallHandler) backendStatus(r *http.Request, name string, hc HealthChecker) string {
	if hc == nil {
		return "disabled"
	}
	if err := hc.CheckHealth(r.Context()); err != nil {
		if errors.Is(err, store.ErrRecorderDisabled) {
			return "disabled"
		}
		logError(r, name+" health check failed", "error", err)
		return "error"
	}
	return "ok"
}
