// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/finalkey/internal/api/dto"
	"github.com/remiblancher/finalkey/internal/api/handler"
	"github.com/remiblancher/finalkey/internal/api/middleware"
	"github.com/remiblancher/finalkey/pkg/native"
)

// Config holds router configuration.
type Config struct {
	Version string

	// Native is the final-key availability check (required).
	Native *native.Availability

	// PKCS11 is the optional PKCS#11 module probe.
	PKCS11 *native.Availability
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	healthHandler := handler.NewHealthHandler(cfg.Version, cfg.Native, cfg.PKCS11)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	nativeHandler := handler.NewNativeHandler(cfg.Native, cfg.PKCS11)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/native", nativeHandler.Native)
		r.Get("/pkcs11", nativeHandler.PKCS11)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, http.StatusNotFound, &dto.APIError{
			Code:    dto.CodeNotFound,
			Message: "no route for " + r.URL.Path,
		})
	})

	return r
}
