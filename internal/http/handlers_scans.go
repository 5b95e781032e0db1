// Package httpx provides the HTTP handlers and utilities for the scan API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/orafinite/scan-api/internal/domain/model"
	"github.com/orafinite/scan-api/internal/service"
)

const (
	defaultResultsPerPage = 20
	defaultListLimit      = 50
)

// ScanHandlers provides HTTP handlers for scan lifecycle operations.
type ScanHandlers struct {
	Svc *service.ScanService
}

// Start handles HTTP requests to start a new vulnerability scan.
func (h *ScanHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartScanRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, resp)
}

// List handles HTTP requests for the most-recent-first scan list.
func (h *ScanHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)

	items, err := h.Svc.List(r.Context(), limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"scans": items, "count": len(items)})
}

// GetStatus handles HTTP requests for the live status of one scan.
func (h *ScanHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("scan id is required")})
		return
	}

	resp, err := h.Svc.GetStatus(r.Context(), scanID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Cancel handles HTTP requests to cancel a scan. Cancelling an already
// terminal scan is not an error; the response carries accepted=false.
func (h *ScanHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("scan id is required")})
		return
	}

	resp, err := h.Svc.Cancel(r.Context(), scanID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetResults handles HTTP requests for the paginated results of a terminal scan.
func (h *ScanHandlers) GetResults(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("scan id is required")})
		return
	}

	page := parseIntQuery(r, "page", 1)
	perPage := parseIntQuery(r, "per_page", defaultResultsPerPage)

	resp, err := h.Svc.GetResults(r.Context(), scanID, page, perPage)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetLogs handles HTTP requests for a scan's probe logs.
func (h *ScanHandlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("scan id is required")})
		return
	}

	resp, err := h.Svc.GetLogs(r.Context(), scanID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
