package events

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileRecorder_RecordAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: RepairApplied, Actor: "human", Subject: "config-defaults", Message: "set region"})
	rec.Record(Event{Type: BackupWritten, Actor: "human", Subject: "config"})

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", got[0].Seq, got[1].Seq)
	}
	if got[0].Type != RepairApplied {
		t.Errorf("type = %q, want %q", got[0].Type, RepairApplied)
	}
	if got[0].Ts.IsZero() {
		t.Error("Ts not auto-filled")
	}
}

func TestFileRecorder_SeqContinuesAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	rec, err := NewFileRecorder(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	rec.Record(Event{Type: DoctorRun, Actor: "human"})
	rec.Record(Event{Type: DoctorRun, Actor: "human"})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rec2, err := NewFileRecorder(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rec2.Close() //nolint:errcheck // test cleanup
	rec2.Record(Event{Type: RepairFailed, Actor: "human"})

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[2].Seq != 3 {
		t.Errorf("reopened recorder seq = %d, want 3", got[2].Seq)
	}
}

func TestFileRecorder_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.jsonl")
	rec, err := NewFileRecorder(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	got, err := ReadAll(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("ReadAll missing file: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestReadAll_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"seq":1,"type":"doctor.run","ts":"2026-08-30T10:00:00Z","actor":"human"}
not json at all
{"seq":2,"type":"repair.applied","ts":"2026-08-30T10:01:00Z","actor":"human"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (malformed line skipped)", len(got))
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic, must not write anywhere.
	Discard.Record(Event{Type: DoctorRun})
}

func TestFileRecorder_MarshalOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rec, err := NewFileRecorder(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer rec.Close() //nolint:errcheck // test cleanup

	rec.Record(Event{Type: BackupWritten, Actor: "human", Subject: "credentials"})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(raw))
	if !strings.Contains(line, `"type":"backup.written"`) {
		t.Errorf("line missing type field: %s", line)
	}
	if strings.Contains(line, `"message"`) {
		t.Errorf("empty message should be omitted: %s", line)
	}
}
