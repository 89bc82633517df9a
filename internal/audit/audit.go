package audit

import (
	"fmt"
	"sync"

	"github.com/remiblancher/finalkey/pkg/native"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil writer disables
// audit logging.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}

	globalWriter = w
	enabled = true
	return nil
}

// InitFile initializes the global audit logger with a file writer.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global audit writer and disables audit logging.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// NewLoadEvent builds the event describing a completed load attempt.
func NewLoadEvent(eventType EventType, s native.Status) *Event {
	result := ResultSuccess
	if !s.Available {
		result = ResultFailure
	}

	objectType := "library"
	if eventType == EventPKCS11Load {
		objectType = "pkcs11_module"
	}

	return NewEvent(eventType, result).
		WithObject(Object{
			Type: objectType,
			Name: s.Library,
			Path: s.Path,
		}).
		WithContext(Context{
			Platform:    s.Platform,
			Description: s.Description,
			Reason:      s.Reason,
		})
}

// LogLoad logs a completed load attempt.
func LogLoad(eventType EventType, s native.Status) error {
	return Log(NewLoadEvent(eventType, s))
}
