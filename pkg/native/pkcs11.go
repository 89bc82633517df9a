//go:build cgo

package native

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/pkcs11"
)

// PKCS11Loader probes a PKCS#11 module: it loads the module, initializes
// Cryptoki and reads the module information.
type PKCS11Loader struct {
	// ModulePath is the path to the PKCS#11 module (.so/.dylib/.dll)
	ModulePath string
}

// LibraryName returns the module path.
func (l *PKCS11Loader) LibraryName() string {
	if l.ModulePath == "" {
		return unsetPKCS11Module
	}
	return l.ModulePath
}

// Load probes the module. The Cryptoki context is released before
// returning, so the returned Library carries no handle.
func (l *PKCS11Loader) Load() (*Library, error) {
	if l.ModulePath == "" {
		return nil, &LoadError{Library: unsetPKCS11Module, Err: errors.New("PKCS#11 module path is required")}
	}
	attempts := []string{l.ModulePath}

	ctx := pkcs11.New(l.ModulePath)
	if ctx == nil {
		return nil, &LoadError{
			Library:  l.ModulePath,
			Attempts: attempts,
			Err:      fmt.Errorf("failed to load PKCS#11 module: %s", l.ModulePath),
		}
	}
	defer ctx.Destroy()

	// Finalize only what we initialized; C_Finalize is process-wide.
	owned := true
	if err := ctx.Initialize(); err != nil {
		if p11err, ok := err.(pkcs11.Error); !ok || p11err != pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED {
			return nil, &LoadError{
				Library:  l.ModulePath,
				Attempts: attempts,
				Err:      fmt.Errorf("failed to initialize PKCS#11 module: %w", err),
			}
		}
		owned = false
	}

	info, err := ctx.GetInfo()
	if owned {
		_ = ctx.Finalize()
	}
	if err != nil {
		return nil, &LoadError{
			Library:  l.ModulePath,
			Attempts: attempts,
			Err:      fmt.Errorf("failed to read PKCS#11 module info: %w", err),
		}
	}

	return NewLibrary(l.ModulePath, l.ModulePath, describePKCS11(info)), nil
}

func describePKCS11(info pkcs11.Info) string {
	return fmt.Sprintf("%s %s %d.%d (Cryptoki %d.%d)",
		strings.TrimSpace(info.ManufacturerID),
		strings.TrimSpace(info.LibraryDescription),
		info.LibraryVersion.Major, info.LibraryVersion.Minor,
		info.CryptokiVersion.Major, info.CryptokiVersion.Minor)
}
