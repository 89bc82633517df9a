// Package handler provides HTTP handlers for the status API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/remiblancher/finalkey/internal/api/dto"
	"github.com/remiblancher/finalkey/pkg/native"
)

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version string
	native  *native.Availability
	pkcs11  *native.Availability
}

// NewHealthHandler creates a new HealthHandler. pkcs11 may be nil.
func NewHealthHandler(version string, lib, pkcs11 *native.Availability) *HealthHandler {
	return &HealthHandler{
		version: version,
		native:  lib,
		pkcs11:  pkcs11,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready handles GET /ready. Only the native library gates readiness; the
// PKCS#11 probe is reported but informational.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := h.native.Available()
	checks := map[string]bool{
		"native": ready,
	}
	if h.pkcs11 != nil {
		checks["pkcs11"] = h.pkcs11.Available()
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, dto.ReadyResponse{
		Ready:  ready,
		Checks: checks,
	})
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}
