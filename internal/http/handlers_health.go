package httpx

import (
	"net/http"

	"github.com/orafinite/scan-api/internal/core"
)

// HealthHandlers reports service readiness: engine availability plus the
// cache backend when one is configured.
type HealthHandlers struct {
	Engine core.ScanEngine
	Cache  core.CacheRepository
}

type healthCheck struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles readiness/liveness checks.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthCheck{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	if h.Engine != nil {
		if err := h.Engine.IsAvailable(r.Context()); err != nil {
			resp.Checks["engine"] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["engine"] = "ok"
		}
	}

	if h.Cache != nil {
		if err := h.Cache.Health(r.Context()); err != nil {
			resp.Checks["cache"] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["cache"] = "ok"
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, resp)
}
