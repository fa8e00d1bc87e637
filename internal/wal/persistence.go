// Package wal implements FluxDB's durability layer: WAL append/flush,
// snapshot write, and recovery replay, expressed with encoding/binary
// over a writer/reader pair.
package wal

import (
	"os"
	"path/filepath"

	"github.com/PranavKndpl/FluxDB/internal/codec"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

// Manager owns the WAL and snapshot paths for a single Collection and is
// the sole place file I/O happens. It has no locking of its own: callers
// hold the Collection's rw_lock for the duration of any call here.
type Manager struct {
	walPath      string
	snapshotPath string
	writer       *Writer
}

// Paths returns the canonical <data>/<name>.wal and <name>.flux paths.
func Paths(dataDir, name string) (walPath, snapshotPath string) {
	return filepath.Join(dataDir, name+".wal"), filepath.Join(dataDir, name+".flux")
}

// Exists reports whether either file backing name already exists under
// dataDir, used by DatabaseManager to detect "newly created" databases.
func Exists(dataDir, name string) bool {
	walPath, snapshotPath := Paths(dataDir, name)
	return fileExists(walPath) || fileExists(snapshotPath)
}

// Open opens (creating if absent) the WAL for append and returns a
// Manager bound to both files. It does not perform recovery; call
// Recover separately before serving traffic.
func Open(dataDir, name string, fsync bool) (*Manager, error) {
	walPath, snapshotPath := Paths(dataDir, name)
	w, err := OpenWriter(walPath, fsync)
	if err != nil {
		return nil, err
	}
	return &Manager{walPath: walPath, snapshotPath: snapshotPath, writer: w}, nil
}

// Recover loads the snapshot if present, then replays the WAL on top
// of it, returning the recovered documents and the next id watermark;
// the caller installs both into the StorageEngine directly, bypassing
// WAL and locks.
func (m *Manager) Recover() (nextID uint64, docs map[uint64]value.Document, err error) {
	nextID = 1
	docs = make(map[uint64]value.Document)

	if snapNextID, snapDocs, ok, err := LoadSnapshot(m.snapshotPath); err != nil {
		return 0, nil, err
	} else if ok {
		nextID = snapNextID
		docs = snapDocs
	}

	records, err := ReadAll(m.walPath)
	if err != nil {
		return 0, nil, err
	}
	for _, rec := range records {
		if rec.ID+1 > nextID {
			nextID = rec.ID + 1
		}
		switch rec.Op {
		case OpUpsert:
			doc, _, err := codec.Decode(rec.Payload)
			if err != nil {
				// A corrupt (non-torn) interior record is not tolerated;
				// only a torn tail is silently absorbed by ReadAll.
				return 0, nil, err
			}
			docs[rec.ID] = doc
		case OpDelete:
			delete(docs, rec.ID)
		}
	}
	return nextID, docs, nil
}

// AppendUpsert logs an UPSERT record ahead of the in-memory mutation.
func (m *Manager) AppendUpsert(id uint64, doc value.Document) error {
	return m.writer.AppendUpsert(id, doc)
}

// AppendDelete logs a DELETE record ahead of the in-memory mutation.
func (m *Manager) AppendDelete(id uint64) error {
	return m.writer.AppendDelete(id)
}

// WALSize returns the current on-disk WAL length, polled by the janitor.
func (m *Manager) WALSize() int64 {
	return m.writer.Size()
}

// Checkpoint writes a fresh snapshot from the given state, then
// truncates the WAL. It is idempotent, and a snapshot-write failure
// leaves the WAL untouched.
func (m *Manager) Checkpoint(nextID uint64, docs map[uint64]value.Document) error {
	if err := WriteSnapshot(m.snapshotPath, nextID, docs); err != nil {
		return err
	}
	return m.writer.Truncate()
}

// Close releases the WAL file handle.
func (m *Manager) Close() error {
	return m.writer.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
