package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	// GenesisHash is the hash_prev of the first event in a log.
	GenesisHash = "sha256:genesis"

	// HashPrefix is prepended to every hash value.
	HashPrefix = "sha256:"
)

// chain links events by hash. The zero value is not ready; use newChain.
type chain struct {
	last string
}

func newChain(last string) *chain {
	return &chain{last: last}
}

// seal sets the hash fields of e and advances the chain.
func (c *chain) seal(e *Event) error {
	e.HashPrev = c.last
	h, err := eventHash(e)
	if err != nil {
		return err
	}
	e.Hash = h
	c.last = h
	return nil
}

// check verifies that e extends the chain, then advances it.
func (c *chain) check(e *Event) error {
	if e.HashPrev != c.last {
		return fmt.Errorf("hash chain broken: expected prev=%s, got prev=%s", c.last, e.HashPrev)
	}
	h, err := eventHash(e)
	if err != nil {
		return err
	}
	if e.Hash != h {
		return fmt.Errorf("hash mismatch: expected=%s, got=%s", h, e.Hash)
	}
	c.last = h
	return nil
}

// eventHash computes SHA256(canonical || hash_prev).
func eventHash(e *Event) (string, error) {
	canonical, err := e.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to serialize event: %w", err)
	}
	sum := sha256.New()
	sum.Write(canonical)
	sum.Write([]byte(e.HashPrev))
	return HashPrefix + hex.EncodeToString(sum.Sum(nil)), nil
}

// FileWriter appends chained events to a JSONL file. Each event is synced
// to disk before Write returns.
type FileWriter struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	chain *chain
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens path for appending. An existing log is continued
// from its last event.
func NewFileWriter(path string) (*FileWriter, error) {
	last, err := lastHash(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &FileWriter{path: path, file: file, chain: newChain(last)}, nil
}

func lastHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read audit log: %w", err)
	}

	lines, err := ReadLines(data)
	if err != nil || len(lines) == 0 {
		return GenesisHash, err
	}

	var tail struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &tail); err != nil {
		return "", fmt.Errorf("failed to parse last event of %s: %w", path, err)
	}
	if tail.Hash == "" {
		return "", fmt.Errorf("last event of %s has no hash", path)
	}
	return tail.Hash, nil
}

// Write seals event into the chain and appends it.
func (w *FileWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("audit log %s is closed", w.path)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	// The chain advances only once the event is on disk.
	next := *w.chain
	if err := next.seal(event); err != nil {
		return err
	}
	line, err := event.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	*w.chain = next
	return nil
}

// Close closes the file. Further writes fail.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// LastHash returns the hash of the last written event.
func (w *FileWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chain.last
}

// Path returns the file path of the audit log.
func (w *FileWriter) Path() string {
	return w.path
}

// ReadLines returns the non-blank lines of a JSONL log.
func ReadLines(data []byte) ([]string, error) {
	var lines []string
	err := eachLine(bytes.NewReader(data), func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})
	return lines, err
}

func eachLine(r io.Reader, fn func([]byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// VerifyChain verifies the hash chain of the audit log at path. It
// returns the number of events verified before the first error.
func VerifyChain(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer func() { _ = f.Close() }()
	return VerifyReader(f)
}

// VerifyReader verifies a JSONL audit stream.
func VerifyReader(r io.Reader) (int, error) {
	c := newChain(GenesisHash)
	n := 0
	err := eachLine(r, func(line []byte) error {
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("event %d: invalid JSON: %w", n+1, err)
		}
		if err := c.check(&event); err != nil {
			return fmt.Errorf("event %d: %w", n+1, err)
		}
		n++
		return nil
	})
	return n, err
}
