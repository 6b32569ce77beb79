package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

func EncodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

func mustEncodeGob(v any) []byte {
	b, err := EncodeGob(v)
	if err != nil {
		panic(fmt.Errorf("encode gob: %w", err))
	}
	return b
}

// UIDKey renders an order identifier as a fixed-width big-endian key.
func UIDKey(uid uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uid)
	return k[:]
}
