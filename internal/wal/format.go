package wal

import "encoding/binary"

var byteOrder = binary.LittleEndian

const (
	OpUpsert byte = 0x01
	OpDelete byte = 0x02
)

const (
	opSize      = 1
	idSize      = 8
	payloadLenSize = 4
)
