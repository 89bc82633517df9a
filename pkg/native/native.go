// Package native reports whether the optional native key-transform library
// can be used by this process.
//
// The library is loaded at most once per Availability. A failed load is
// never returned to callers of IsAvailable or Available: it is recorded,
// reported as false, and kept for diagnostics through Err and Status.
//
// Usage:
//
//	if native.IsAvailable() {
//	    // call into the accelerated transform
//	} else {
//	    // fall back to the pure Go path
//	}
package native

import "sync"

// LibraryName is the logical name of the native key-transform library.
const LibraryName = "final-key"

// unsetPKCS11Module names a PKCS11Loader whose ModulePath is empty.
const unsetPKCS11Module = "pkcs11-module (unset)"

var (
	defaultOnce         sync.Once
	defaultAvailability *Availability
)

// Default returns the process-wide availability check for LibraryName,
// using the platform's standard library search path.
func Default() *Availability {
	defaultOnce.Do(func() {
		defaultAvailability = NewAvailability(&DynamicLoader{Name: LibraryName})
	})
	return defaultAvailability
}

// IsAvailable reports whether the native library is loaded and usable.
// The first call performs the load attempt; later calls return the
// recorded outcome without retrying.
func IsAvailable() bool {
	return Default().Available()
}
