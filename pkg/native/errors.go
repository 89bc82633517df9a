package native

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable matches every load failure (errors.Is).
	ErrUnavailable = errors.New("native library unavailable")

	// ErrUnsupportedPlatform is returned on platforms without a dynamic loader.
	ErrUnsupportedPlatform = errors.New("dynamic library loading is not supported on this platform")

	// ErrNoCGO is returned by loaders that need cgo in a cgo-less build.
	ErrNoCGO = errors.New("PKCS#11 support requires CGO (build with CGO_ENABLED=1)")

	// ErrSymbolNotFound is returned when a required symbol cannot be resolved.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// LoadError describes a failed load attempt.
type LoadError struct {
	// Library is the logical name that was requested.
	Library string

	// Attempts lists the file names handed to the dynamic loader, in order.
	Attempts []string

	// Err is the underlying cause.
	Err error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "native library %q unavailable", e.Library)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes every LoadError match ErrUnavailable.
func (e *LoadError) Is(target error) bool {
	return target == ErrUnavailable
}

// asLoadError wraps err in a LoadError unless it already is one.
func asLoadError(name string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Library: name, Err: err}
}
