package httpx

import (
	"net/http"

	"github.com/orafinite/scan-api/internal/domain/model"
	"github.com/orafinite/scan-api/internal/engine"
	"github.com/orafinite/scan-api/internal/service"
)

// ProbeHandlers provides HTTP handlers for the probe catalog and retests.
type ProbeHandlers struct {
	Svc *service.ScanService
}

// Catalog handles HTTP requests for the probe catalog grouped by category.
func (h *ProbeHandlers) Catalog(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, engine.CatalogResponse())
}

// Retest handles HTTP requests to replay one attack prompt synchronously.
func (h *ProbeHandlers) Retest(w http.ResponseWriter, r *http.Request) {
	var req model.RetestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Retest(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
