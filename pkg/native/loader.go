package native

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Loader performs one load attempt.
type Loader interface {
	Load() (*Library, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func() (*Library, error)

// Load calls f.
func (f LoaderFunc) Load() (*Library, error) {
	return f()
}

// Library is a native library mapped into the process.
type Library struct {
	// Name is the logical name that was requested.
	Name string

	// Path is the file name the dynamic loader accepted.
	Path string

	// Description is optional, loader-specific information.
	Description string

	handle uintptr
}

// NewLibrary returns a Library with no OS handle, for loaders that manage
// the mapping themselves.
func NewLibrary(name, path, description string) *Library {
	return &Library{Name: name, Path: path, Description: description}
}

// Symbol returns the address of an exported symbol.
func (l *Library) Symbol(name string) (uintptr, error) {
	if l == nil || l.handle == 0 {
		return 0, fmt.Errorf("%s: %w (no library handle)", name, ErrSymbolNotFound)
	}
	addr, err := lookupSymbol(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", name, ErrSymbolNotFound, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrSymbolNotFound)
	}
	return addr, nil
}

// DynamicLoader loads a shared library through the platform's dynamic
// linker.
type DynamicLoader struct {
	// Name is a logical library name ("final-key") or an explicit file
	// name or path ("/opt/lib/libfinal-key.so"). Defaults to LibraryName.
	Name string

	// SearchPaths are directories tried, in order, before the platform's
	// standard search path.
	SearchPaths []string

	// Symbols must all resolve for the load to succeed.
	Symbols []string
}

// LibraryName returns the logical name this loader was asked for.
func (l *DynamicLoader) LibraryName() string {
	if l.Name == "" {
		return LibraryName
	}
	return l.Name
}

// Candidates returns the file names handed to the dynamic loader, in the
// order they are tried.
func (l *DynamicLoader) Candidates() []string {
	name := l.LibraryName()
	if !isBareName(name) {
		return []string{name}
	}

	file := MapLibraryName(name)
	candidates := make([]string, 0, len(l.SearchPaths)+1)
	for _, dir := range l.SearchPaths {
		if dir == "" {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, file))
	}
	// Bare file name: the platform search path applies.
	return append(candidates, file)
}

// Load tries each candidate until one opens and exports every required
// symbol.
func (l *DynamicLoader) Load() (*Library, error) {
	name := l.LibraryName()
	candidates := l.Candidates()

	var errs []error
	for _, path := range candidates {
		handle, err := openLibrary(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		lib := &Library{Name: name, Path: path, handle: handle}
		if err := lib.requireSymbols(l.Symbols); err != nil {
			_ = closeLibrary(handle)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		return lib, nil
	}

	return nil, &LoadError{Library: name, Attempts: candidates, Err: errors.Join(errs...)}
}

func (l *Library) requireSymbols(symbols []string) error {
	for _, sym := range symbols {
		if _, err := l.Symbol(sym); err != nil {
			return err
		}
	}
	return nil
}

// MapLibraryName maps a logical library name to the platform's shared
// library file name: lib<name>.so, lib<name>.dylib or <name>.dll.
// Names that already carry a shared library extension are returned as is.
func MapLibraryName(name string) string {
	return mapLibraryName(name, runtime.GOOS)
}

func mapLibraryName(name, goos string) string {
	if hasLibraryExt(name) {
		return name
	}
	switch goos {
	case "windows":
		return name + ".dll"
	case "darwin", "ios":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

func hasLibraryExt(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".so"),
		strings.Contains(lower, ".so."),
		strings.HasSuffix(lower, ".dylib"),
		strings.HasSuffix(lower, ".dll"):
		return true
	}
	return false
}

// isBareName reports whether name has no directory component, leaving the
// choice of file to the platform search path.
func isBareName(name string) bool {
	return !strings.ContainsAny(name, `/\`)
}
