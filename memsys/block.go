// Package memsys owns the fixed-capacity byte buffers export blocks are
// built on top of, the same role the teacher's memsys.Slab/SGL pool plays
// for object I/O buffers - here sized and lifecycled per export block
// rather than per page.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package memsys

import "github.com/NVIDIA/txport/cmn"

// Block owns one contiguous byte buffer written by exactly one writer.
// Once handed to a sink it must not be mutated again.
type Block struct {
	buf          []byte
	BaseUSO      int64
	Offset       int64
	GenerationID int64
	Signature    string
	EndOfStream  bool
}

// NewBlock allocates a block with the given capacity. Allocation failure
// (out of memory) is fatal per the spec's error taxonomy; the Go runtime
// aborts the process on its own in that case (an unrecoverable fatal
// error, not a panic).
func NewBlock(capacity int, baseUSO int64) *Block {
	return &Block{
		buf:     make([]byte, capacity),
		BaseUSO: baseUSO,
	}
}

// NewEOSMarker synthesizes a zero-byte block representing the end of one
// generation's export stream. It carries no buffer at all.
func NewEOSMarker(baseUSO, generationID int64, signature string) *Block {
	return &Block{
		BaseUSO:      baseUSO,
		GenerationID: generationID,
		Signature:    signature,
		EndOfStream:  true,
	}
}

// Capacity returns the total size of the owned buffer.
func (b *Block) Capacity() int64 { return int64(len(b.buf)) }

// Remaining returns the number of bytes still free at the tail.
func (b *Block) Remaining() int64 { return b.Capacity() - b.Offset }

// MutableTail returns the writable suffix of the buffer, starting at the
// current offset. Callers must not retain it past the next Consumed call.
func (b *Block) MutableTail() []byte { return b.buf[b.Offset:] }

// Bytes returns the portion of the buffer that has been written so far -
// the payload a sink receives ownership of.
func (b *Block) Bytes() []byte {
	if b.buf == nil {
		return nil
	}
	return b.buf[:b.Offset]
}

// Consumed advances Offset by n bytes, the bookkeeping step after a writer
// has filled in MutableTail(). Fatal if n exceeds Remaining().
func (b *Block) Consumed(n int64) {
	if n > b.Remaining() {
		cmn.Fatalf("block: consumed %d exceeds remaining %d", n, b.Remaining())
	}
	b.Offset += n
}

// TruncateTo rewinds the block so its end corresponds to USO mark.
// Requires BaseUSO <= mark <= BaseUSO+Offset.
func (b *Block) TruncateTo(mark int64) {
	if mark < b.BaseUSO || mark > b.BaseUSO+b.Offset {
		cmn.Fatalf("block: truncateTo(%d) out of range [%d, %d]", mark, b.BaseUSO, b.BaseUSO+b.Offset)
	}
	b.Offset = mark - b.BaseUSO
}

// EndUSO returns the USO immediately past the last byte written to this
// block.
func (b *Block) EndUSO() int64 { return b.BaseUSO + b.Offset }

// Empty reports whether the block carries no payload bytes. Pure EOS
// markers are always Empty but are still eligible for a push.
func (b *Block) Empty() bool { return b.Offset == 0 }

// HasBuffer reports whether this block owns an actual byte buffer. EOS
// markers synthesized by NewEOSMarker do not - the sink sees a nil block
// for those.
func (b *Block) HasBuffer() bool { return b.buf != nil }
