package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/remiblancher/finalkey/internal/api/dto"
	"github.com/remiblancher/finalkey/pkg/native"
)

func availableLib() *native.Availability {
	return native.NewAvailability(native.LoaderFunc(func() (*native.Library, error) {
		return native.NewLibrary("final-key", "/opt/lib/libfinal-key.so", ""), nil
	}), native.WithName("final-key"))
}

func missingLib(name string) *native.Availability {
	return native.NewAvailability(native.LoaderFunc(func() (*native.Library, error) {
		return nil, errors.New("not found")
	}), native.WithName(name))
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestF_Router_Health(t *testing.T) {
	h := New(&Config{Version: "1.2.3", Native: missingLib("final-key")})

	rec := do(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	var resp dto.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" {
		t.Errorf("health response = %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}
}

func TestF_Router_Ready(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *Config
		wantStatus int
		wantReady  bool
		wantChecks int
	}{
		{
			name:       "[Functional] Ready: library available",
			cfg:        &Config{Native: availableLib()},
			wantStatus: http.StatusOK,
			wantReady:  true,
			wantChecks: 1,
		},
		{
			name:       "[Functional] Ready: library missing",
			cfg:        &Config{Native: missingLib("final-key")},
			wantStatus: http.StatusServiceUnavailable,
			wantReady:  false,
			wantChecks: 1,
		},
		{
			name:       "[Functional] Ready: PKCS#11 reported but not gating",
			cfg:        &Config{Native: availableLib(), PKCS11: missingLib("/usr/lib/p11.so")},
			wantStatus: http.StatusOK,
			wantReady:  true,
			wantChecks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(tt.cfg), "/ready")
			if rec.Code != tt.wantStatus {
				t.Errorf("GET /ready = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp dto.ReadyResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Ready != tt.wantReady {
				t.Errorf("ready = %v, want %v", resp.Ready, tt.wantReady)
			}
			if len(resp.Checks) != tt.wantChecks {
				t.Errorf("checks = %v, want %d entries", resp.Checks, tt.wantChecks)
			}
		})
	}
}

func TestF_Router_NativeStatus(t *testing.T) {
	lib := missingLib("final-key")
	h := New(&Config{Native: lib})

	if lib.State() != native.StateUnchecked {
		t.Fatal("building the router must not trigger a load")
	}

	rec := do(t, h, "/api/v1/native")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/native = %d, want 200", rec.Code)
	}
	var s native.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.Library != "final-key" || s.State != native.StateChecked || s.Available {
		t.Errorf("status = %+v", s)
	}
	if s.Reason == "" {
		t.Error("status should carry the failure reason")
	}
}

func TestF_Router_PKCS11Status(t *testing.T) {
	rec := do(t, New(&Config{Native: availableLib()}), "/api/v1/pkcs11")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/v1/pkcs11 without module = %d, want 404", rec.Code)
	}
	var apiErr dto.APIError
	_ = json.Unmarshal(rec.Body.Bytes(), &apiErr)
	if apiErr.Code != dto.CodeNotConfigured {
		t.Errorf("error code = %q, want %q", apiErr.Code, dto.CodeNotConfigured)
	}

	rec = do(t, New(&Config{Native: availableLib(), PKCS11: missingLib("/usr/lib/p11.so")}), "/api/v1/pkcs11")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/pkcs11 = %d, want 200", rec.Code)
	}
	var s native.Status
	_ = json.Unmarshal(rec.Body.Bytes(), &s)
	if s.Library != "/usr/lib/p11.so" || s.Available {
		t.Errorf("status = %+v", s)
	}
}

func TestF_Router_NotFound(t *testing.T) {
	rec := do(t, New(&Config{Native: availableLib()}), "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
	var apiErr dto.APIError
	_ = json.Unmarshal(rec.Body.Bytes(), &apiErr)
	if apiErr.Code != dto.CodeNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, dto.CodeNotFound)
	}
}
