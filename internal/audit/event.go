// Package audit records native library load attempts in a tamper-evident
// log.
//
// Events are written as JSON lines. Each event carries the SHA-256 hash of
// the previous one, so edits, deletions and insertions break the chain and
// are reported by VerifyChain. All timestamps are UTC.
package audit

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// EventType is the kind of load attempt an event records.
type EventType string

const (
	EventNativeLoad EventType = "NATIVE_LOAD"
	EventPKCS11Load EventType = "PKCS11_LOAD"
)

// Result is the outcome of a load attempt.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor identifies the process that attempted the load.
type Actor struct {
	Type string `json:"type"` // always "process"
	ID   string `json:"id"`   // user the process runs as
	Host string `json:"host,omitempty"`
	PID  int    `json:"pid,omitempty"`
}

// Object is the library the process tried to load.
type Object struct {
	Type string `json:"type"`           // "library", "pkcs11_module"
	Name string `json:"name,omitempty"` // name as requested
	Path string `json:"path,omitempty"` // file that was actually opened
}

// Context holds the details reported by the loader.
type Context struct {
	Platform    string `json:"platform,omitempty"` // GOOS/GOARCH
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Event is one line of the audit log.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"`
	Hash      string    `json:"hash,omitempty"`
}

// NewEvent creates an event stamped with the current time and the
// calling process.
func NewEvent(eventType EventType, result Result) *Event {
	host, _ := os.Hostname()
	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "process",
			ID:   currentUser(),
			Host: host,
			PID:  os.Getpid(),
		},
		Result: result,
	}
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "unknown"
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// Validate reports every missing required field.
func (e *Event) Validate() error {
	var errs []error
	if e.EventType == "" {
		errs = append(errs, errors.New("event_type is required"))
	}
	if e.Timestamp == "" {
		errs = append(errs, errors.New("timestamp is required"))
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		errs = append(errs, errors.New("actor type and id are required"))
	}
	if e.Result == "" {
		errs = append(errs, errors.New("result is required"))
	}
	return errors.Join(errs...)
}

// CanonicalJSON is the byte form that gets hashed: the event with Hash
// cleared.
func (e *Event) CanonicalJSON() ([]byte, error) {
	c := *e
	c.Hash = ""
	return json.Marshal(&c)
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
