/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"

	"github.com/NVIDIA/txport/cmn"
)

// OpType distinguishes an inserted row from a deleted one.
type OpType int64

const (
	OpDelete OpType = 0
	OpInsert OpType = 1
)

// metaColCount is the number of fixed metadata columns written ahead of
// every row's user columns: txn_id, timestamp, seq_no, partition_id,
// site_id, op_type.
const metaColCount = 6

const rowLengthPrefixSize = 4

// Meta holds the fixed metadata columns every row carries.
type Meta struct {
	TxnID       int64
	Timestamp   int64
	SeqNo       int64
	PartitionID int64
	SiteID      int64
	OpType      OpType
}

// Column is one user-column value together with the codec used to
// (de)serialize it. Null columns carry no bytes and their codec is not
// used on encode; DecodeRow takes its codecs from a separate schema and
// reads no bytes for a column whose null bit is set.
type Column struct {
	Null  bool
	Codec ColumnCodec
	Val   any
}

// Row is one change-event record ready to be serialized by EncodeRow.
type Row struct {
	Meta    Meta
	Columns []Column
}

// MaxEncodedSize returns an upper bound on the serialized size of row,
// used by the stream to decide whether a row fits in the current block
// before a single byte is written.
func MaxEncodedSize(row Row) int {
	n := rowLengthPrefixSize + bitmapLen(metaColCount+len(row.Columns))
	n += metaColCount * 8 // each metadata column is a fixed int64
	for _, c := range row.Columns {
		if c.Null {
			continue
		}
		n += c.Codec.MaxSize(c.Val)
	}
	return n
}

// EncodeRow serializes row into dst (which must be at least
// MaxEncodedSize(row) bytes) and returns the number of bytes written.
func EncodeRow(dst []byte, row Row) int {
	numCols := metaColCount + len(row.Columns)
	bmLen := bitmapLen(numCols)

	off := rowLengthPrefixSize
	bitmap := dst[off : off+bmLen]
	for i := range bitmap {
		bitmap[i] = 0
	}
	off += bmLen

	// Metadata columns are never null.
	off += putInt64(dst[off:], int64(row.Meta.TxnID))
	off += putInt64(dst[off:], int64(row.Meta.Timestamp))
	off += putInt64(dst[off:], int64(row.Meta.SeqNo))
	off += putInt64(dst[off:], int64(row.Meta.PartitionID))
	off += putInt64(dst[off:], int64(row.Meta.SiteID))
	off += putInt64(dst[off:], int64(row.Meta.OpType))

	for i, c := range row.Columns {
		if c.Null {
			bitmapSet(bitmap, metaColCount+i)
			continue
		}
		n := c.Codec.Encode(dst[off:], c.Val)
		off += n
	}

	rowLen := off - rowLengthPrefixSize
	binary.BigEndian.PutUint32(dst[:rowLengthPrefixSize], uint32(rowLen))
	return off
}

func putInt64(dst []byte, v int64) int {
	binary.BigEndian.PutUint64(dst, uint64(v))
	return 8
}

func getInt64(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src))
}

// DecodeRow parses one row out of src given the user-column codec schema
// (in the same order the row was encoded with). It returns the decoded
// row and the total number of bytes consumed, including the length
// prefix.
func DecodeRow(src []byte, schema []ColumnCodec) (Row, int) {
	if len(src) < rowLengthPrefixSize {
		cmn.Fatalf("decode row: short buffer")
	}
	rowLen := int(binary.BigEndian.Uint32(src[:rowLengthPrefixSize]))
	body := src[rowLengthPrefixSize : rowLengthPrefixSize+rowLen]

	numCols := metaColCount + len(schema)
	bmLen := bitmapLen(numCols)
	bitmap := body[:bmLen]
	off := bmLen

	meta := Meta{
		TxnID:       getInt64(body[off:]),
		Timestamp:   getInt64(body[off+8:]),
		SeqNo:       getInt64(body[off+16:]),
		PartitionID: getInt64(body[off+24:]),
		SiteID:      getInt64(body[off+32:]),
		OpType:      OpType(getInt64(body[off+40:])),
	}
	off += metaColCount * 8

	cols := make([]Column, len(schema))
	for i, codec := range schema {
		if bitmapIsSet(bitmap, metaColCount+i) {
			cols[i] = Column{Null: true, Codec: codec}
			continue
		}
		v, n := codec.Decode(body[off:])
		cols[i] = Column{Codec: codec, Val: v}
		off += n
	}

	return Row{Meta: meta, Columns: cols}, rowLengthPrefixSize + rowLen
}
