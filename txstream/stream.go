// Package txstream implements the per-partition export tuple stream: a
// buffer-chain manager that accumulates row-level change events, tracks
// committed-vs-in-flight transaction boundaries, fences schema-generation
// changes, and hands fully-committed blocks to an external TopEndSink.
//
// A Stream has exactly one writer; broken invariants are fatal and raised
// through cmn.Fatalf as a *cmn.InvariantViolation panic.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package txstream

import (
	"math"

	"github.com/NVIDIA/txport/cmn"
	"github.com/NVIDIA/txport/memsys"
	"github.com/NVIDIA/txport/sink"
	"github.com/NVIDIA/txport/statshub"
	"github.com/NVIDIA/txport/wire"
)

// generationSentinel represents "uninitialized generation": the epoch of
// the block preceding the very first one, which must never trigger an EOS
// marker.
const generationSentinel = math.MinInt64

// Stream owns one in-progress memsys.Block plus a FIFO of blocks pending
// commit+handoff, for exactly one partition/site pair.
type Stream struct {
	PartitionID int64
	SiteID      int64

	signature string

	defaultCapacity int
	activityStarted bool

	uso int64

	current         *memsys.Block
	firstRowInBlock bool
	pending         []*memsys.Block

	openTxnID  int64
	openTxnUSO int64

	committedTxnID int64
	committedUSO   int64

	generation          int64
	generationSet       bool
	prevBlockGeneration int64

	lastFlushMillis int64

	sink sink.TopEndSink
}

// New creates a stream for one partition with an initial empty block. The
// stream lives for the partition's lifetime.
func New(partitionID, siteID int64, signature string, defaultCapacity int, s sink.TopEndSink) *Stream {
	st := &Stream{
		PartitionID:         partitionID,
		SiteID:              siteID,
		signature:           signature,
		defaultCapacity:     defaultCapacity,
		prevBlockGeneration: generationSentinel,
		sink:                s,
	}
	st.current = memsys.NewBlock(defaultCapacity, 0)
	st.firstRowInBlock = true
	return st
}

// SetDefaultCapacity changes the capacity used for newly allocated blocks.
// Only valid before any writes or any transaction has opened.
func (s *Stream) SetDefaultCapacity(n int) {
	if s.activityStarted {
		cmn.Fatalf("setDefaultCapacity: stream %d already active", s.PartitionID)
	}
	s.defaultCapacity = n
	if s.current != nil && s.current.Offset == 0 {
		s.current = memsys.NewBlock(n, s.current.BaseUSO)
	}
}

// SetSignatureAndGeneration advances the stream's schema epoch. gen must
// be strictly greater than the current generation; sig must match the
// current signature, or the current signature must still be empty. Once a
// generation has been set (by an earlier call, or by an AppendTuple that
// carried a newer generation), this force-commits at the new generation,
// force-extends the block chain, and drains - guaranteeing the consumer
// observes an EOS marker at the boundary (see drainPendingBlocks).
func (s *Stream) SetSignatureAndGeneration(sig string, gen int64) {
	if s.generationSet && gen <= s.generation {
		cmn.Fatalf("generation regression: %d <= %d", gen, s.generation)
	}
	if s.signature != "" && s.signature != sig {
		cmn.Fatalf("signature mismatch: got %q, stream is %q", sig, s.signature)
	}
	initial := !s.generationSet
	s.signature = sig
	s.generation = gen
	s.generationSet = true
	if initial {
		return
	}
	s.Commit(s.openTxnID, s.openTxnID, false)
	s.forceNewBlock()
	s.drainPendingBlocks()
}

// AppendTuple serializes one row and appends it to the stream, returning
// the USO immediately before the append (the mark a caller passes to
// RollbackTo to undo it).
func (s *Stream) AppendTuple(lastCommittedTxnID, txnID, seqNo, timestamp, generationID int64, columns []wire.Column, opType wire.OpType) int64 {
	if txnID < s.openTxnID {
		cmn.Fatalf("append: txn_id %d precedes open_txn_id %d", txnID, s.openTxnID)
	}
	s.activityStarted = true
	s.Commit(lastCommittedTxnID, txnID, false)

	row := wire.Row{
		Meta: wire.Meta{
			TxnID:       txnID,
			Timestamp:   timestamp,
			SeqNo:       seqNo,
			PartitionID: s.PartitionID,
			SiteID:      s.SiteID,
			OpType:      opType,
		},
		Columns: columns,
	}
	need := wire.MaxEncodedSize(row)
	if need > s.defaultCapacity {
		cmn.Fatalf("append: row of %d bytes exceeds default capacity %d", need, s.defaultCapacity)
	}

	s.activityStarted = true
	s.Commit(lastCommittedTxnID, txnID, false)

	if generationID > s.generation {
		s.generation = generationID
		s.generationSet = true
		s.forceNewBlock()
	}

	if s.current == nil || int64(need) > s.current.Remaining() {
		if need > s.defaultCapacity {
			cmn.Fatalf("append: row of %d bytes exceeds default capacity %d", need, s.defaultCapacity)
		}
		s.forceNewBlock()
	}

	s.drainPendingBlocks()

	if s.firstRowInBlock {
		s.current.GenerationID = s.generation
		s.current.Signature = s.signature
		s.firstRowInBlock = false
	}

	mark := s.uso
	n := wire.EncodeRow(s.current.MutableTail(), row)
	s.current.Consumed(int64(n))
	s.uso += int64(n)

	hub := statshub.Get()
	hub.ExportRows.Inc()
	hub.ExportBytes.Add(float64(n))

	return mark
}

// Commit is the only writer of openTxnID, openTxnUSO, committedUSO and
// committedTxnID. See §4.4 of the spec for the rule ordering.
func (s *Stream) Commit(lastCommittedTxnID, currentTxnID int64, _ bool) {
	if currentTxnID < s.openTxnID {
		cmn.Fatalf("commit: current_txn_id %d precedes open_txn_id %d", currentTxnID, s.openTxnID)
	}
	s.activityStarted = true
	if currentTxnID == s.openTxnID && lastCommittedTxnID == s.committedTxnID {
		return
	}
	if s.openTxnID < currentTxnID {
		s.committedUSO = s.uso
		s.committedTxnID = s.openTxnID
		s.openTxnID = currentTxnID
		s.openTxnUSO = s.uso
	}
	if s.openTxnID <= lastCommittedTxnID {
		s.committedUSO = s.uso
		s.committedTxnID = s.openTxnID
	}
}

// RollbackTo discards all bytes with USO >= mark. mark must not exceed the
// current tail, and the caller is responsible for never rolling back
// bytes that are already committed.
func (s *Stream) RollbackTo(mark int64) {
	if mark > s.uso {
		cmn.Fatalf("rollback: mark %d is past the current tail %d", mark, s.uso)
	}
	s.uso = mark

	if s.current != nil && s.current.BaseUSO < mark {
		s.current.TruncateTo(mark)
		return
	}

	s.current = nil
	for len(s.pending) > 0 {
		last := s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]
		if last.BaseUSO >= mark {
			continue
		}
		last.TruncateTo(mark)
		s.current = last
		break
	}
	s.firstRowInBlock = s.current == nil
}

// PeriodicFlush force-extends the block chain and drains it once more
// than MaxBufferAgeMillis has elapsed since the last flush, or
// immediately when nowMillis < 0 (a mandatory flush).
func (s *Stream) PeriodicFlush(nowMillis, lastCommittedTxnID, currentTxnID int64) {
	if nowMillis >= 0 && nowMillis-s.lastFlushMillis <= cmn.GCO().MaxBufferAgeMillis {
		return
	}
	if nowMillis >= 0 {
		s.lastFlushMillis = nowMillis
	}

	effective := currentTxnID
	if s.openTxnID > effective {
		effective = s.openTxnID
	}

	s.forceNewBlock()
	s.Commit(lastCommittedTxnID, effective, false)
	s.drainPendingBlocks()
}

// forceNewBlock pushes the in-progress block (if any) onto pending and
// allocates a fresh one at the current tail.
func (s *Stream) forceNewBlock() {
	if s.current != nil {
		s.pending = append(s.pending, s.current)
	}
	s.current = memsys.NewBlock(s.defaultCapacity, s.uso)
	s.firstRowInBlock = true
}

// drainPendingBlocks walks pending front-to-back, injecting an EOS marker
// at each generation transition and handing fully-committed blocks to the
// sink. See §4.6 of the spec.
func (s *Stream) drainPendingBlocks() {
	for len(s.pending) > 0 {
		b := s.pending[0]
		// A block that never received a row (the chain's initial
		// placeholder, or one abandoned by a generation bump before its
		// first write) carries no meaningful generation and must not
		// perturb EOS tracking - only content-bearing blocks (and EOS
		// markers themselves) participate in the transition check.
		if !b.Empty() || b.EndOfStream {
			if b.GenerationID > s.prevBlockGeneration && s.prevBlockGeneration != generationSentinel {
				eos := memsys.NewEOSMarker(b.BaseUSO, s.prevBlockGeneration, s.signature)
				s.push(eos)
			}
			s.prevBlockGeneration = b.GenerationID
		}

		if s.committedUSO >= b.EndUSO() {
			s.pending = s.pending[1:]
			s.push(b)
			continue
		}
		break
	}
}

// push hands one block to the sink, skipping blocks that are empty and
// not an EOS marker. Sink failure is fatal - the stream has no recovery
// strategy for it.
func (s *Stream) push(b *memsys.Block) {
	if b.Empty() && !b.EndOfStream {
		return
	}
	var payload *memsys.Block
	if b.HasBuffer() {
		payload = b
	}
	if err := s.sink.PushExportBuffer(b.GenerationID, int32(s.PartitionID), s.signature, payload, false, b.EndOfStream); err != nil {
		cmn.Fatalf("sink push failed for partition %d: %v", s.PartitionID, err)
	}
	statshub.Get().SinkPushes.Inc()
}

// USO returns the current stream tail position.
func (s *Stream) USO() int64 { return s.uso }

// CommittedUSO returns the durable-committable boundary.
func (s *Stream) CommittedUSO() int64 { return s.committedUSO }

// Generation returns the current schema epoch.
func (s *Stream) Generation() int64 { return s.generation }

// PendingLen returns the number of blocks awaiting commit+handoff. Test
// and diagnostic use only.
func (s *Stream) PendingLen() int { return len(s.pending) }
