package audit

// Writer defines the interface for audit log writers.
//
// Implementations MUST return an error if the write fails, set the hash
// chain (HashPrev, Hash) and flush before returning from Write.
type Writer interface {
	Write(event *Event) error
	Close() error

	// LastHash returns GenesisHash if no events have been written.
	LastHash() string
}

// NopWriter is a no-op writer that discards all events.
// Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }
