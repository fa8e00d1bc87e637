package wal

import (
	"fmt"
	"os"

	"github.com/PranavKndpl/FluxDB/internal/codec"
	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

const (
	snapshotHeaderSize = 8 + 8 // next_id, count
	snapshotEntryFixed = 8 + 4 // id, len
)

// WriteSnapshot writes the full snapshot file in this layout:
//
//	u64 next_id
//	u64 count
//	repeat count times: u64 id, u32 len, len bytes
//
// It writes to a temporary file and renames into place so a crash mid-
// write never leaves a torn snapshot at the canonical path.
func WriteSnapshot(path string, nextID uint64, docs map[uint64]value.Document) error {
	buf := make([]byte, snapshotHeaderSize, 4096)
	byteOrder.PutUint64(buf[0:], nextID)
	byteOrder.PutUint64(buf[8:], uint64(len(docs)))

	for id, doc := range docs {
		payload, err := codec.Encode(doc)
		if err != nil {
			return err
		}
		entry := make([]byte, snapshotEntryFixed+len(payload))
		byteOrder.PutUint64(entry[0:], id)
		byteOrder.PutUint32(entry[8:], uint32(len(payload)))
		copy(entry[snapshotEntryFixed:], payload)
		buf = append(buf, entry...)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot reads and decodes a snapshot file. A missing file is not
// an error: it reports ok=false so the caller falls through to WAL-only
// recovery.
func LoadSnapshot(path string) (nextID uint64, docs map[uint64]value.Document, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	if len(data) < snapshotHeaderSize {
		return 0, nil, false, fmt.Errorf("%w: truncated snapshot header", fluxerrors.ErrCorruptWAL)
	}

	nextID = byteOrder.Uint64(data[0:])
	count := byteOrder.Uint64(data[8:])
	docs = make(map[uint64]value.Document, count)

	offset := snapshotHeaderSize
	for i := uint64(0); i < count; i++ {
		if offset+snapshotEntryFixed > len(data) {
			return 0, nil, false, fmt.Errorf("%w: truncated snapshot entry header", fluxerrors.ErrCorruptWAL)
		}
		id := byteOrder.Uint64(data[offset:])
		length := int(byteOrder.Uint32(data[offset+8:]))
		offset += snapshotEntryFixed

		if offset+length > len(data) {
			return 0, nil, false, fmt.Errorf("%w: truncated snapshot payload", fluxerrors.ErrCorruptWAL)
		}
		doc, _, err := codec.Decode(data[offset : offset+length])
		if err != nil {
			return 0, nil, false, err
		}
		docs[id] = doc
		offset += length
	}

	return nextID, docs, true, nil
}
