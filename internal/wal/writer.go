package wal

import (
	"os"
	"sync"

	"github.com/PranavKndpl/FluxDB/internal/codec"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

// Writer appends WAL records for a single Collection and tracks the
// on-disk size the janitor thread polls through WALSize.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	size  int64
	fsync bool
}

// OpenWriter opens (creating if absent) the WAL file at path in append
// mode and reports its current on-disk size. fsync gates whether each
// append calls File.Sync. Durability requires flush-before-return on
// every append, so callers should only disable fsync for throwaway or
// benchmark configurations.
func OpenWriter(path string, fsync bool) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{file: f, path: path, size: info.Size(), fsync: fsync}, nil
}

// AppendUpsert encodes and appends an UPSERT record, flushing before
// returning.
func (w *Writer) AppendUpsert(id uint64, doc value.Document) error {
	payload, err := codec.Encode(doc)
	if err != nil {
		return err
	}
	record := make([]byte, opSize+idSize+payloadLenSize+len(payload))
	record[0] = OpUpsert
	byteOrder.PutUint64(record[opSize:], id)
	byteOrder.PutUint32(record[opSize+idSize:], uint32(len(payload)))
	copy(record[opSize+idSize+payloadLenSize:], payload)
	return w.appendAndFlush(record)
}

// AppendDelete encodes and appends a DELETE record.
func (w *Writer) AppendDelete(id uint64) error {
	record := make([]byte, opSize+idSize)
	record[0] = OpDelete
	byteOrder.PutUint64(record[opSize:], id)
	return w.appendAndFlush(record)
}

func (w *Writer) appendAndFlush(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(record)
	if err != nil {
		return err
	}
	if w.fsync {
		if err := w.file.Sync(); err != nil {
			return err
		}
	}
	w.size += int64(n)
	return nil
}

// Size returns the current on-disk WAL length.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Truncate closes, truncates, and reopens the WAL in append mode,
// used after a successful checkpoint.
func (w *Writer) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
