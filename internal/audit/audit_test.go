package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remiblancher/finalkey/pkg/native"
)

// =============================================================================
// Event Tests
// =============================================================================

func TestU_NewEvent_Creation(t *testing.T) {
	event := NewEvent(EventNativeLoad, ResultSuccess)

	if event.EventType != EventNativeLoad {
		t.Errorf("expected EventType=%s, got %s", EventNativeLoad, event.EventType)
	}
	if event.Result != ResultSuccess {
		t.Errorf("expected Result=%s, got %s", ResultSuccess, event.Result)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp should not be empty")
	}
	if event.Actor.Type != "process" {
		t.Errorf("expected Actor.Type=process, got %s", event.Actor.Type)
	}
	if event.Actor.PID != os.Getpid() {
		t.Errorf("expected Actor.PID=%d, got %d", os.Getpid(), event.Actor.PID)
	}
}

func TestU_Event_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{
			name:    "[Unit] Validate: valid event",
			event:   NewEvent(EventNativeLoad, ResultSuccess),
			wantErr: false,
		},
		{
			name: "[Unit] Validate: missing event_type",
			event: &Event{
				Timestamp: "2026-01-15T10:00:00Z",
				Actor:     Actor{Type: "process", ID: "admin"},
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "[Unit] Validate: missing actor",
			event: &Event{
				EventType: EventNativeLoad,
				Timestamp: "2026-01-15T10:00:00Z",
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "[Unit] Validate: missing result",
			event: &Event{
				EventType: EventNativeLoad,
				Timestamp: "2026-01-15T10:00:00Z",
				Actor:     Actor{Type: "process", ID: "admin"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestU_Event_CanonicalJSONExcludesHash(t *testing.T) {
	event := NewEvent(EventNativeLoad, ResultFailure)
	event.HashPrev = GenesisHash
	event.Hash = "sha256:something"

	canonical, err := event.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	if strings.Contains(string(canonical), `"hash":`) {
		t.Error("CanonicalJSON() should not contain the hash field")
	}
	if !strings.Contains(string(canonical), `"hash_prev":"sha256:genesis"`) {
		t.Error("CanonicalJSON() should contain hash_prev")
	}
}

func TestU_NewLoadEvent(t *testing.T) {
	failed := native.Status{
		Library:  "final-key",
		State:    native.StateChecked,
		Reason:   `native library "final-key" unavailable: not found`,
		Platform: "linux/amd64",
	}
	event := NewLoadEvent(EventNativeLoad, failed)
	if event.Result != ResultFailure {
		t.Errorf("Result = %s, want failure", event.Result)
	}
	if event.Object.Type != "library" || event.Object.Name != "final-key" {
		t.Errorf("Object = %+v", event.Object)
	}
	if event.Context.Reason != failed.Reason || event.Context.Platform != "linux/amd64" {
		t.Errorf("Context = %+v", event.Context)
	}

	ok := native.Status{Library: "/usr/lib/softhsm/libsofthsm2.so", Available: true, Path: "/usr/lib/softhsm/libsofthsm2.so"}
	event = NewLoadEvent(EventPKCS11Load, ok)
	if event.Result != ResultSuccess {
		t.Errorf("Result = %s, want success", event.Result)
	}
	if event.Object.Type != "pkcs11_module" {
		t.Errorf("Object.Type = %s, want pkcs11_module", event.Object.Type)
	}
}

// =============================================================================
// FileWriter Tests
// =============================================================================

func TestU_FileWriter_HashChain(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	writer, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	if writer.LastHash() != GenesisHash {
		t.Errorf("LastHash() = %s, want %s", writer.LastHash(), GenesisHash)
	}

	first := NewEvent(EventNativeLoad, ResultFailure)
	if err := writer.Write(first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if first.HashPrev != GenesisHash {
		t.Errorf("first HashPrev = %s, want genesis", first.HashPrev)
	}
	if !strings.HasPrefix(first.Hash, HashPrefix) {
		t.Errorf("first Hash = %s, want %s prefix", first.Hash, HashPrefix)
	}

	second := NewEvent(EventPKCS11Load, ResultSuccess)
	if err := writer.Write(second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if second.HashPrev != first.Hash {
		t.Error("second HashPrev should equal first Hash")
	}
	if writer.Path() != logPath {
		t.Errorf("Path() = %s, want %s", writer.Path(), logPath)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := writer.Write(NewEvent(EventNativeLoad, ResultSuccess)); err == nil {
		t.Error("Write() after Close() should fail")
	}
}

func TestU_FileWriter_ContinuesExistingChain(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	w1, _ := NewFileWriter(logPath)
	_ = w1.Write(NewEvent(EventNativeLoad, ResultSuccess))
	last := w1.LastHash()
	_ = w1.Close()

	w2, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	if w2.LastHash() != last {
		t.Errorf("reopened LastHash() = %s, want %s", w2.LastHash(), last)
	}
	_ = w2.Write(NewEvent(EventNativeLoad, ResultFailure))
	_ = w2.Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if count != 2 {
		t.Errorf("VerifyChain() count = %d, want 2", count)
	}
}

func TestU_FileWriter_InvalidEvent(t *testing.T) {
	writer, _ := NewFileWriter(filepath.Join(t.TempDir(), "audit.jsonl"))
	defer func() { _ = writer.Close() }()

	if err := writer.Write(&Event{}); err == nil {
		t.Error("Write() should reject an invalid event")
	}
}

func TestU_NewFileWriter_CorruptLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	_ = os.WriteFile(logPath, []byte("{not json}\n"), 0600)

	if _, err := NewFileWriter(logPath); err == nil {
		t.Error("NewFileWriter() should fail when the last event is unreadable")
	}
}

// =============================================================================
// VerifyChain Tests
// =============================================================================

func TestU_VerifyChain_Valid(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 5; i++ {
		_ = writer.Write(NewEvent(EventNativeLoad, ResultSuccess))
	}
	_ = writer.Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 5 {
		t.Errorf("VerifyChain() count = %d, want 5", count)
	}
}

func TestU_VerifyReader_BlankLines(t *testing.T) {
	c := newChain(GenesisHash)
	var buf strings.Builder
	for i := 0; i < 2; i++ {
		e := NewEvent(EventNativeLoad, ResultSuccess)
		if err := c.seal(e); err != nil {
			t.Fatalf("seal() error = %v", err)
		}
		line, _ := e.JSON()
		buf.WriteString("\n" + string(line) + "\n")
	}

	count, err := VerifyReader(strings.NewReader(buf.String()))
	if err != nil || count != 2 {
		t.Errorf("VerifyReader() = %d, %v; want 2, nil", count, err)
	}
}

func TestU_VerifyChain_Empty(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	_ = os.WriteFile(logPath, nil, 0600)

	count, err := VerifyChain(logPath)
	if err != nil || count != 0 {
		t.Errorf("VerifyChain() = %d, %v; want 0, nil", count, err)
	}
}

func TestU_VerifyChain_Tampering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 3; i++ {
		_ = writer.Write(NewEvent(EventNativeLoad, ResultFailure))
	}
	_ = writer.Close()

	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var event Event
	_ = json.Unmarshal([]byte(lines[1]), &event)
	event.Result = ResultSuccess
	tampered, _ := event.JSON()
	lines[1] = string(tampered)
	_ = os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0600)

	count, err := VerifyChain(logPath)
	if err == nil {
		t.Error("VerifyChain() should fail on tampered log")
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1 (events before tampering)", count)
	}
}

func TestU_VerifyChain_DeletedEvent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	writer, _ := NewFileWriter(logPath)
	for i := 0; i < 3; i++ {
		_ = writer.Write(NewEvent(EventNativeLoad, ResultSuccess))
	}
	_ = writer.Close()

	data, _ := os.ReadFile(logPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	_ = os.WriteFile(logPath, []byte(lines[0]+"\n"+lines[2]+"\n"), 0600)

	count, err := VerifyChain(logPath)
	if err == nil || !strings.Contains(err.Error(), "hash chain broken") {
		t.Errorf("VerifyChain() error = %v, want hash chain broken", err)
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1", count)
	}
}

// =============================================================================
// Writer Tests
// =============================================================================

func TestU_NopWriter(t *testing.T) {
	var w NopWriter

	if err := w.Write(NewEvent(EventNativeLoad, ResultSuccess)); err != nil {
		t.Errorf("NopWriter.Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("NopWriter.Close() error = %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("NopWriter.LastHash() = %s, want %s", w.LastHash(), GenesisHash)
	}
}

// =============================================================================
// Global Audit Tests
// =============================================================================

func TestU_GlobalAudit_InitAndLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	if !Enabled() {
		t.Error("Enabled() should return true after InitFile")
	}

	status := native.Status{Library: "final-key", State: native.StateChecked, Reason: "missing"}
	if err := LogLoad(EventNativeLoad, status); err != nil {
		t.Errorf("LogLoad() error = %v", err)
	}

	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if Enabled() {
		t.Error("Enabled() should return false after Close")
	}

	count, err := VerifyChain(logPath)
	if err != nil || count != 1 {
		t.Errorf("VerifyChain() = %d, %v; want 1, nil", count, err)
	}
}

func TestU_GlobalAudit_Disabled(t *testing.T) {
	if err := InitFile(""); err != nil {
		t.Fatalf("InitFile(\"\") error = %v", err)
	}
	if Enabled() {
		t.Error("Enabled() should be false with an empty path")
	}
	if err := Log(NewEvent(EventNativeLoad, ResultSuccess)); err != nil {
		t.Errorf("Log() with audit disabled error = %v", err)
	}
}
