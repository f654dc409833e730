/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"
	"math"

	"github.com/NVIDIA/txport/cmn"
)

// ColumnCodec encodes and decodes one user-column value. Implementations
// must be self-delimiting: Decode reports how many bytes of src it
// consumed so the row decoder can advance to the next column without an
// external length table.
type ColumnCodec interface {
	// MaxSize returns an upper bound on the encoded size of v, used to
	// size the row's capacity check before a single byte is written.
	MaxSize(v any) int
	// Encode writes v into dst and returns the number of bytes written.
	// len(dst) is guaranteed to be >= MaxSize(v).
	Encode(dst []byte, v any) int
	// Decode reads one value starting at src[0] and returns it together
	// with the number of bytes consumed.
	Decode(src []byte) (v any, consumed int)
}

// Int64Codec encodes a fixed 8-byte big-endian integer.
type Int64Codec struct{}

func (Int64Codec) MaxSize(any) int { return 8 }

func (Int64Codec) Encode(dst []byte, v any) int {
	binary.BigEndian.PutUint64(dst, uint64(v.(int64)))
	return 8
}

func (Int64Codec) Decode(src []byte) (any, int) {
	return int64(binary.BigEndian.Uint64(src)), 8
}

// Float64Codec encodes a fixed 8-byte IEEE-754 double.
type Float64Codec struct{}

func (Float64Codec) MaxSize(any) int { return 8 }

func (Float64Codec) Encode(dst []byte, v any) int {
	binary.BigEndian.PutUint64(dst, math.Float64bits(v.(float64)))
	return 8
}

func (Float64Codec) Decode(src []byte) (any, int) {
	return math.Float64frombits(binary.BigEndian.Uint64(src)), 8
}

// BoolCodec encodes a single byte, 1 for true.
type BoolCodec struct{}

func (BoolCodec) MaxSize(any) int { return 1 }

func (BoolCodec) Encode(dst []byte, v any) int {
	if v.(bool) {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	return 1
}

func (BoolCodec) Decode(src []byte) (any, int) {
	return src[0] != 0, 1
}

// StringCodec encodes a uint32 byte-length prefix followed by the raw
// UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) MaxSize(v any) int { return 4 + len(v.(string)) }

func (StringCodec) Encode(dst []byte, v any) int {
	s := v.(string)
	binary.BigEndian.PutUint32(dst, uint32(len(s)))
	n := copy(dst[4:], s)
	if n != len(s) {
		cmn.Fatalf("string codec: short write")
	}
	return 4 + len(s)
}

func (StringCodec) Decode(src []byte) (any, int) {
	n := binary.BigEndian.Uint32(src)
	return string(src[4 : 4+n]), 4 + int(n)
}

// BytesCodec encodes a uint32 byte-length prefix followed by the raw bytes.
type BytesCodec struct{}

func (BytesCodec) MaxSize(v any) int { return 4 + len(v.([]byte)) }

func (BytesCodec) Encode(dst []byte, v any) int {
	b := v.([]byte)
	binary.BigEndian.PutUint32(dst, uint32(len(b)))
	n := copy(dst[4:], b)
	if n != len(b) {
		cmn.Fatalf("bytes codec: short write")
	}
	return 4 + len(b)
}

func (BytesCodec) Decode(src []byte) (any, int) {
	n := binary.BigEndian.Uint32(src)
	out := make([]byte, n)
	copy(out, src[4:4+n])
	return out, 4 + int(n)
}
