// Package dto provides Data Transfer Objects for the status API.
package dto

// Error codes for API responses.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeNotConfigured = "NOT_CONFIGURED"
	CodeInternal      = "INTERNAL_ERROR"
)

// APIError represents a standardized error response.
type APIError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	// Ready is true when the native library is usable.
	Ready bool `json:"ready"`

	// Checks maps each probed library to its availability.
	Checks map[string]bool `json:"checks"`
}
