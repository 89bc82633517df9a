//go:build windows

package native

import "golang.org/x/sys/windows"

func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0, loadFlags(path))
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

// loadFlags keeps bare names out of the current directory and PATH: only
// the application directory, System32 and AddDllDirectory entries are
// searched. Explicit paths are opened as given.
func loadFlags(path string) uintptr {
	if isBareName(path) {
		return windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS
	}
	return 0
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}
