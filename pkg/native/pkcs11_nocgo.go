//go:build !cgo

package native

// PKCS11Loader probes a PKCS#11 module.
// This stub is used when CGO is not available.
type PKCS11Loader struct {
	ModulePath string
}

// LibraryName returns the module path.
func (l *PKCS11Loader) LibraryName() string {
	if l.ModulePath == "" {
		return unsetPKCS11Module
	}
	return l.ModulePath
}

// Load always fails without CGO.
func (l *PKCS11Loader) Load() (*Library, error) {
	return nil, &LoadError{Library: l.LibraryName(), Err: ErrNoCGO}
}
