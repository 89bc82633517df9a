package native

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// State is the position of an Availability in its one-way state machine.
type State string

const (
	// StateUnchecked means no load has been attempted yet.
	StateUnchecked State = "unchecked"

	// StateChecked means the single load attempt has completed. Terminal.
	StateChecked State = "checked"
)

// Status is a snapshot of an Availability for reporting.
type Status struct {
	Library     string `json:"library" yaml:"library"`
	State       State  `json:"state" yaml:"state"`
	Available   bool   `json:"available" yaml:"available"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Platform    string `json:"platform" yaml:"platform"`
}

// Option configures an Availability.
type Option func(*Availability)

// WithName sets the library name reported in Status. By default the name
// comes from the loader when it has one, else LibraryName.
func WithName(name string) Option {
	return func(a *Availability) {
		a.name = name
	}
}

// WithObserver registers a callback run once, right after the load
// attempt completes, by the goroutine that performed it. The callback may
// query the Availability. Panics raised by the callback are recovered.
func WithObserver(fn func(Status)) Option {
	return func(a *Availability) {
		if fn != nil {
			a.observers = append(a.observers, fn)
		}
	}
}

// Availability memoizes the outcome of a single load attempt.
// It is safe for concurrent use; concurrent first callers wait for the
// one attempt in flight and all observe its outcome.
type Availability struct {
	loader    Loader
	name      string
	observers []func(Status)

	once    sync.Once
	checked atomic.Bool
	lib     *Library
	err     error
}

// NewAvailability creates an unchecked Availability backed by loader.
// Nothing is loaded until the first call to Available, Err or Library.
func NewAvailability(loader Loader, opts ...Option) *Availability {
	a := &Availability{loader: loader, name: LibraryName}
	if n, ok := loader.(interface{ LibraryName() string }); ok {
		a.name = n.LibraryName()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether the library is loaded and usable, loading it
// on the first call.
func (a *Availability) Available() bool {
	a.check()
	return a.err == nil
}

// Err returns why the library is unavailable, or nil when it loaded.
// Like Available, it triggers the load attempt on first use.
func (a *Availability) Err() error {
	a.check()
	return a.err
}

// Library returns the loaded library, or nil when unavailable.
func (a *Availability) Library() *Library {
	a.check()
	return a.lib
}

// State reports whether the load attempt has happened. It never loads.
func (a *Availability) State() State {
	if a.checked.Load() {
		return StateChecked
	}
	return StateUnchecked
}

// Status returns a snapshot of the current state. It never loads.
func (a *Availability) Status() Status {
	s := Status{
		Library:  a.name,
		State:    StateUnchecked,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if !a.checked.Load() {
		return s
	}

	s.State = StateChecked
	if a.err != nil {
		s.Reason = a.err.Error()
		return s
	}
	s.Available = true
	s.Path = a.lib.Path
	s.Description = a.lib.Description
	return s
}

func (a *Availability) check() {
	loaded := false
	a.once.Do(func() {
		a.lib, a.err = a.load()
		a.checked.Store(true)
		loaded = true
	})
	// Observers run outside once.Do so they may query a.
	if loaded {
		a.notify()
	}
}

// load runs the loader, turning every failure mode into a *LoadError.
func (a *Availability) load() (lib *Library, err error) {
	defer func() {
		if r := recover(); r != nil {
			lib = nil
			err = &LoadError{Library: a.name, Err: fmt.Errorf("panic during load: %v", r)}
		}
	}()

	if a.loader == nil {
		return nil, &LoadError{Library: a.name, Err: errors.New("no loader configured")}
	}

	lib, err = a.loader.Load()
	if err != nil {
		return nil, asLoadError(a.name, err)
	}
	if lib == nil {
		return nil, &LoadError{Library: a.name, Err: errors.New("loader returned no library")}
	}
	return lib, nil
}

func (a *Availability) notify() {
	if len(a.observers) == 0 {
		return
	}
	status := a.Status()
	for _, fn := range a.observers {
		func() {
			defer func() { _ = recover() }()
			fn(status)
		}()
	}
}
