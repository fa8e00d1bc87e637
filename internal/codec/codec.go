// Package codec implements length-prefixed binary framing for a
// Document. It underlies both WAL records and snapshot entries. Arrays
// are not representable in this frame — callers must reject documents
// containing an Array value before calling Encode.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

var byteOrder = binary.LittleEndian

const (
	tagInt    byte = 0
	tagDouble byte = 1
	tagBool   byte = 2
	tagString byte = 3
	tagObject byte = 4
)

// Encode serializes doc per the wire layout:
//
//	u32 field_count
//	repeat field_count times:
//	  u16 key_len, key_bytes
//	  u8  type_tag
//	  payload (type-specific, Object recurses)
func Encode(doc value.Document) ([]byte, error) {
	if doc.ContainsArray() {
		return nil, fluxerrors.ErrArrayNotPersistable
	}
	buf := make([]byte, 0, 64)
	buf = appendDocument(buf, doc)
	return buf, nil
}

func appendDocument(buf []byte, doc value.Document) []byte {
	var countBuf [4]byte
	byteOrder.PutUint32(countBuf[:], uint32(len(doc)))
	buf = append(buf, countBuf[:]...)

	for key, v := range doc {
		buf = appendKey(buf, key)
		buf = appendValue(buf, v)
	}
	return buf
}

func appendKey(buf []byte, key string) []byte {
	var lenBuf [2]byte
	byteOrder.PutUint16(lenBuf[:], uint16(len(key)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, key...)
	return buf
}

func appendValue(buf []byte, v value.Value) []byte {
	switch v.Kind() {
	case value.KindInt:
		buf = append(buf, tagInt)
		i, _ := v.AsInt()
		var b [8]byte
		byteOrder.PutUint64(b[:], uint64(i))
		buf = append(buf, b[:]...)
	case value.KindDouble:
		buf = append(buf, tagDouble)
		f, _ := v.AsDouble()
		var b [8]byte
		byteOrder.PutUint64(b[:], math.Float64bits(f))
		buf = append(buf, b[:]...)
	case value.KindBool:
		buf = append(buf, tagBool)
		bl, _ := v.AsBool()
		if bl {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case value.KindString:
		buf = append(buf, tagString)
		s, _ := v.AsString()
		var lenBuf [2]byte
		byteOrder.PutUint16(lenBuf[:], uint16(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, s...)
	case value.KindObject:
		buf = append(buf, tagObject)
		obj, _ := v.AsObject()
		buf = appendDocument(buf, value.Document(obj))
	}
	return buf
}

// Decode deserializes a Document from the start of data, returning the
// number of bytes consumed. It fails with ErrCorruptWAL-wrapping errors
// on a short or malformed buffer rather than panicking, so callers can
// treat a torn tail record as a clean stop.
func Decode(data []byte) (value.Document, int, error) {
	doc, n, err := decodeDocument(data)
	if err != nil {
		return nil, 0, err
	}
	return doc, n, nil
}

func decodeDocument(data []byte) (value.Document, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("%w: truncated field count", fluxerrors.ErrCorruptWAL)
	}
	count := byteOrder.Uint32(data[:4])
	offset := 4

	doc := make(value.Document, count)
	for i := uint32(0); i < count; i++ {
		if offset+2 > len(data) {
			return nil, 0, fmt.Errorf("%w: truncated key length", fluxerrors.ErrCorruptWAL)
		}
		keyLen := int(byteOrder.Uint16(data[offset:]))
		offset += 2

		if offset+keyLen > len(data) {
			return nil, 0, fmt.Errorf("%w: truncated key", fluxerrors.ErrCorruptWAL)
		}
		key := string(data[offset : offset+keyLen])
		offset += keyLen

		if offset+1 > len(data) {
			return nil, 0, fmt.Errorf("%w: truncated type tag", fluxerrors.ErrCorruptWAL)
		}
		tag := data[offset]
		offset++

		v, n, err := decodeValue(tag, data[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += n
		doc[key] = v
	}
	return doc, offset, nil
}

func decodeValue(tag byte, data []byte) (value.Value, int, error) {
	switch tag {
	case tagInt:
		if len(data) < 8 {
			return value.Value{}, 0, fmt.Errorf("%w: truncated int", fluxerrors.ErrCorruptWAL)
		}
		return value.Int(int64(byteOrder.Uint64(data))), 8, nil
	case tagDouble:
		if len(data) < 8 {
			return value.Value{}, 0, fmt.Errorf("%w: truncated double", fluxerrors.ErrCorruptWAL)
		}
		return value.Double(math.Float64frombits(byteOrder.Uint64(data))), 8, nil
	case tagBool:
		if len(data) < 1 {
			return value.Value{}, 0, fmt.Errorf("%w: truncated bool", fluxerrors.ErrCorruptWAL)
		}
		return value.Bool(data[0] != 0), 1, nil
	case tagString:
		if len(data) < 2 {
			return value.Value{}, 0, fmt.Errorf("%w: truncated string length", fluxerrors.ErrCorruptWAL)
		}
		strLen := int(byteOrder.Uint16(data))
		if len(data) < 2+strLen {
			return value.Value{}, 0, fmt.Errorf("%w: truncated string", fluxerrors.ErrCorruptWAL)
		}
		return value.String(string(data[2 : 2+strLen])), 2 + strLen, nil
	case tagObject:
		doc, n, err := decodeDocument(data)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.Object(map[string]value.Value(doc)), n, nil
	default:
		return value.Value{}, 0, fmt.Errorf("%w: unknown type tag %d", fluxerrors.ErrCorruptWAL, tag)
	}
}
