package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PranavKndpl/FluxDB/internal/value"
)

func TestRecoverEmptyIsFreshDatabase(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	nextID, docs, err := m.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if nextID != 1 || len(docs) != 0 {
		t.Fatalf("expected empty fresh state, got nextID=%d docs=%v", nextID, docs)
	}
}

func TestAppendAndRecoverReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := m.AppendUpsert(1, value.Document{"a": value.Int(1)}); err != nil {
		t.Fatalf("AppendUpsert: %v", err)
	}
	if err := m.AppendUpsert(2, value.Document{"a": value.Int(2)}); err != nil {
		t.Fatalf("AppendUpsert: %v", err)
	}
	if err := m.AppendUpsert(1, value.Document{"a": value.Int(99)}); err != nil {
		t.Fatalf("AppendUpsert: %v", err)
	}
	if err := m.AppendDelete(2); err != nil {
		t.Fatalf("AppendDelete: %v", err)
	}
	m.Close()

	m2, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m2.Close()

	nextID, docs, err := m2.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if nextID != 3 {
		t.Fatalf("expected next_id 3, got %d", nextID)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 surviving doc, got %d", len(docs))
	}
	got, _ := docs[1]["a"].AsInt()
	if got != 99 {
		t.Fatalf("expected id 1 to hold the later upsert, got %d", got)
	}
	if _, ok := docs[2]; ok {
		t.Fatalf("expected id 2 to be deleted")
	}
}

func TestRecoverTornTailIsSilentlyTruncated(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.AppendUpsert(1, value.Document{"a": value.Int(1)}); err != nil {
		t.Fatalf("AppendUpsert: %v", err)
	}
	m.Close()

	walPath, _ := Paths(dir, "db")
	f, err := os.OpenFile(walPath, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	// Simulate a crash mid-write: op byte + id + a partial payload length.
	if _, err := f.Write([]byte{OpUpsert, 2, 0, 0, 0, 0, 0, 0, 0, 0xFF}); err != nil {
		t.Fatalf("write torn record: %v", err)
	}
	f.Close()

	m2, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m2.Close()

	nextID, docs, err := m2.Recover()
	if err != nil {
		t.Fatalf("expected torn tail to be tolerated, got error: %v", err)
	}
	if nextID != 2 || len(docs) != 1 {
		t.Fatalf("expected prior records to stand, got nextID=%d docs=%v", nextID, docs)
	}
}

func TestCheckpointTruncatesWAL(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if err := m.AppendUpsert(1, value.Document{"a": value.Int(1)}); err != nil {
		t.Fatalf("AppendUpsert: %v", err)
	}
	if m.WALSize() == 0 {
		t.Fatalf("expected non-zero WAL size before checkpoint")
	}

	docs := map[uint64]value.Document{1: {"a": value.Int(1)}}
	if err := m.Checkpoint(2, docs); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if m.WALSize() != 0 {
		t.Fatalf("expected WAL truncated to 0 after checkpoint, got %d", m.WALSize())
	}

	snapshotPath := filepath.Join(dir, "db.flux")
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("expected snapshot file to exist: %v", err)
	}

	nextID, loaded, ok, err := LoadSnapshot(snapshotPath)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if nextID != 2 || len(loaded) != 1 {
		t.Fatalf("expected snapshot to preserve state, got nextID=%d docs=%v", nextID, loaded)
	}
}

func TestExistsDetectsEitherFile(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir, "db") {
		t.Fatalf("expected no files to exist yet")
	}
	m, err := Open(dir, "db", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()
	if !Exists(dir, "db") {
		t.Fatalf("expected WAL file to be detected once opened")
	}
}
