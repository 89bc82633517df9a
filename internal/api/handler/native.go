package handler

import (
	"net/http"

	"github.com/remiblancher/finalkey/internal/api/dto"
	"github.com/remiblancher/finalkey/pkg/native"
)

// NativeHandler reports library availability.
type NativeHandler struct {
	native *native.Availability
	pkcs11 *native.Availability
}

// NewNativeHandler creates a new NativeHandler. pkcs11 may be nil.
func NewNativeHandler(lib, pkcs11 *native.Availability) *NativeHandler {
	return &NativeHandler{native: lib, pkcs11: pkcs11}
}

// Native handles GET /api/v1/native.
func (h *NativeHandler) Native(w http.ResponseWriter, r *http.Request) {
	respondStatus(w, h.native)
}

// PKCS11 handles GET /api/v1/pkcs11.
func (h *NativeHandler) PKCS11(w http.ResponseWriter, r *http.Request) {
	if h.pkcs11 == nil {
		RespondError(w, http.StatusNotFound, &dto.APIError{
			Code:    dto.CodeNotConfigured,
			Message: "no PKCS#11 module configured",
		})
		return
	}
	respondStatus(w, h.pkcs11)
}

// respondStatus triggers the check if needed and writes the snapshot.
func respondStatus(w http.ResponseWriter, a *native.Availability) {
	_ = a.Available()
	respondJSON(w, http.StatusOK, a.Status())
}
