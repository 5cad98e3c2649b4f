// Package wal implements a segmented write-ahead log of entity changes with
// LSN tracking and CRC32 checksums.
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/vmihailenco/msgpack/v5"
)

// Record layout (24-byte header + payload + 4-byte payload CRC):
//
//	Magic (4B) | Type (1B) | Flags (1B) | Reserved (2B)
//	LSN (8B)
//	PayloadLen (4B)
//	HeaderCRC32 (4B) over bytes [0:20]
//	Payload (PayloadLen bytes, msgpack)
//	PayloadCRC32 (4B)

const (
	// MagicBytes marks the start of every record ("WALR")
	MagicBytes uint32 = 0x57414C52

	// HeaderSize is the fixed size of the record header
	HeaderSize = 24

	// MaxPayloadSize limits individual record size (10MB)
	MaxPayloadSize = 10 * 1024 * 1024

	// MaxKeyLen limits entity key length
	MaxKeyLen = 1024
)

// RecordType identifies the type of WAL record
type RecordType uint8

const (
	RecordTypePut        RecordType = 0x01 // Entity created or replaced
	RecordTypeDelete     RecordType = 0x03 // Tombstone
	RecordTypeCheckpoint RecordType = 0x04 // Marks a compacted or flushed position
)

func (r RecordType) String() string {
	switch r {
	case RecordTypePut:
		return "PUT"
	case RecordTypeDelete:
		return "DELETE"
	case RecordTypeCheckpoint:
		return "CHECKPOINT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", r)
	}
}

// ErrCorrupt reports a record that failed magic, length or checksum checks
var ErrCorrupt = errors.New("wal: corrupt record")

// Record is one framed WAL entry
type Record struct {
	Type       RecordType
	Flags      uint8
	LSN        uint64
	Payload    []byte
	HeaderCRC  uint32
	PayloadCRC uint32
}

// NewRecord frames payload as a record of the given type
func NewRecord(recType RecordType, lsn uint64, payload []byte) (*Record, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d > %d", len(payload), MaxPayloadSize)
	}

	rec := &Record{
		Type:    recType,
		LSN:     lsn,
		Payload: payload,
	}
	rec.HeaderCRC = crc32.ChecksumIEEE(rec.header()[:20])
	rec.PayloadCRC = crc32.ChecksumIEEE(payload)
	return rec, nil
}

// header returns the first 24 bytes of the encoded record
func (r *Record) header() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], MagicBytes)
	buf[4] = byte(r.Type)
	buf[5] = r.Flags
	binary.LittleEndian.PutUint64(buf[8:16], r.LSN)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(r.Payload)))
	binary.LittleEndian.PutUint32(buf[20:24], r.HeaderCRC)
	return buf
}

// Encode serializes the record
func (r *Record) Encode() []byte {
	buf := make([]byte, 0, r.TotalSize())
	buf = append(buf, r.header()...)
	buf = append(buf, r.Payload...)
	return binary.LittleEndian.AppendUint32(buf, r.PayloadCRC)
}

// TotalSize returns the encoded size of the record
func (r *Record) TotalSize() int {
	return HeaderSize + len(r.Payload) + 4
}

// DecodeRecord parses and verifies one record from the start of data
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(data))
	}

	payloadLen, err := checkHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}

	total := HeaderSize + int(payloadLen) + 4
	if len(data) < total {
		return nil, fmt.Errorf("%w: short payload (%d < %d)", ErrCorrupt, len(data), total)
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[HeaderSize:HeaderSize+int(payloadLen)])
	payloadCRC := binary.LittleEndian.Uint32(data[HeaderSize+int(payloadLen) : total])
	if crc := crc32.ChecksumIEEE(payload); crc != payloadCRC {
		return nil, fmt.Errorf("%w: payload CRC 0x%X, want 0x%X", ErrCorrupt, payloadCRC, crc)
	}

	return &Record{
		Type:       RecordType(data[4]),
		Flags:      data[5],
		LSN:        binary.LittleEndian.Uint64(data[8:16]),
		Payload:    payload,
		HeaderCRC:  binary.LittleEndian.Uint32(data[20:24]),
		PayloadCRC: payloadCRC,
	}, nil
}

// checkHeader validates magic, header CRC and payload length
func checkHeader(header []byte) (uint32, error) {
	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != MagicBytes {
		return 0, fmt.Errorf("%w: magic 0x%X", ErrCorrupt, magic)
	}
	if crc := crc32.ChecksumIEEE(header[0:20]); crc != binary.LittleEndian.Uint32(header[20:24]) {
		return 0, fmt.Errorf("%w: header CRC mismatch", ErrCorrupt)
	}
	payloadLen := binary.LittleEndian.Uint32(header[16:20])
	if payloadLen > MaxPayloadSize {
		return 0, fmt.Errorf("%w: payload length %d", ErrCorrupt, payloadLen)
	}
	return payloadLen, nil
}

// Entry is the payload of a PUT record: an entity key and its encoded document
type Entry struct {
	Key string `msgpack:"k"`
	Doc []byte `msgpack:"d"`
}

type deletePayload struct {
	Key string `msgpack:"k"`
}

type checkpointPayload struct {
	LSN uint64 `msgpack:"lsn"`
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if len(key) > MaxKeyLen {
		return fmt.Errorf("key too long: %d > %d", len(key), MaxKeyLen)
	}
	return nil
}

// EncodePut serializes a PUT payload
func EncodePut(e Entry) ([]byte, error) {
	if err := checkKey(e.Key); err != nil {
		return nil, err
	}
	return msgpack.Marshal(&e)
}

// DecodePut deserializes a PUT payload
func DecodePut(data []byte) (Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode put payload: %w", err)
	}
	if err := checkKey(e.Key); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// EncodeDelete serializes a DELETE payload
func EncodeDelete(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return msgpack.Marshal(&deletePayload{Key: key})
}

// DecodeDelete deserializes a DELETE payload
func DecodeDelete(data []byte) (string, error) {
	var p deletePayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("failed to decode delete payload: %w", err)
	}
	if err := checkKey(p.Key); err != nil {
		return "", err
	}
	return p.Key, nil
}

// EncodeCheckpoint serializes a CHECKPOINT payload
func EncodeCheckpoint(lsn uint64) ([]byte, error) {
	return msgpack.Marshal(&checkpointPayload{LSN: lsn})
}

// DecodeCheckpoint deserializes a CHECKPOINT payload
func DecodeCheckpoint(data []byte) (uint64, error) {
	var p checkpointPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("failed to decode checkpoint payload: %w", err)
	}
	return p.LSN, nil
}
