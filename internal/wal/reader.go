package wal

import (
	"fmt"
	"os"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
)

// Record is one decoded WAL entry. For OpDelete, Payload is nil.
type Record struct {
	Op      byte
	ID      uint64
	Payload []byte
}

// ReadAll reads and decodes every complete record in the WAL file at
// path, in file order. A torn trailing record — one that runs past
// end-of-file — terminates replay silently; the records decoded so far
// are returned with a nil error, matching a crash mid-append. A missing
// file returns no records and no error.
func ReadAll(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []Record
	offset := 0
	for offset < len(data) {
		rec, n, err := decodeRecord(data[offset:])
		if err != nil {
			break
		}
		records = append(records, rec)
		offset += n
	}
	return records, nil
}

func decodeRecord(data []byte) (Record, int, error) {
	if len(data) < opSize+idSize {
		return Record{}, 0, fmt.Errorf("%w: truncated record header", fluxerrors.ErrCorruptWAL)
	}
	op := data[0]
	id := byteOrder.Uint64(data[opSize:])
	offset := opSize + idSize

	switch op {
	case OpDelete:
		return Record{Op: op, ID: id}, offset, nil
	case OpUpsert:
		if len(data) < offset+payloadLenSize {
			return Record{}, 0, fmt.Errorf("%w: truncated payload length", fluxerrors.ErrCorruptWAL)
		}
		payloadLen := int(byteOrder.Uint32(data[offset:]))
		offset += payloadLenSize
		if len(data) < offset+payloadLen {
			return Record{}, 0, fmt.Errorf("%w: truncated payload", fluxerrors.ErrCorruptWAL)
		}
		payload := make([]byte, payloadLen)
		copy(payload, data[offset:offset+payloadLen])
		offset += payloadLen
		return Record{Op: op, ID: id, Payload: payload}, offset, nil
	default:
		return Record{}, 0, fmt.Errorf("%w: unknown op %d", fluxerrors.ErrCorruptWAL, op)
	}
}
