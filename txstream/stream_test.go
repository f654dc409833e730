/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package txstream_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/txport/sink"
	"github.com/NVIDIA/txport/txstream"
	"github.com/NVIDIA/txport/wire"
)

func oneCol(v int64) []wire.Column {
	return []wire.Column{{Codec: wire.Int64Codec{}, Val: v}}
}

var _ = Describe("Stream", func() {
	var (
		rec *sink.Recorder
		st  *txstream.Stream
	)

	BeforeEach(func() {
		rec = sink.NewRecorder()
		st = txstream.New(7, 1, "sig", 4096, rec)
	})

	Describe("append/commit/drain (S1)", func() {
		It("pushes exactly one block containing all rows once the block is drained", func() {
			st.AppendTuple(0, 100, 1, 1000, 0, oneCol(1), wire.OpInsert)
			st.AppendTuple(0, 100, 2, 1001, 0, oneCol(2), wire.OpInsert)
			st.AppendTuple(0, 100, 3, 1002, 0, oneCol(3), wire.OpInsert)

			st.Commit(100, 101, false)
			Expect(st.CommittedUSO()).To(Equal(st.USO()))
			Expect(rec.Pushes()).To(BeEmpty())

			st.PeriodicFlush(-1, 100, 101)

			pushes := rec.Pushes()
			Expect(pushes).To(HaveLen(1))
			Expect(st.USO()).To(Equal(pushes[0].Block.EndUSO()))
			Expect(st.PendingLen()).To(Equal(0))
		})
	})

	Describe("rollback mid-transaction (S2)", func() {
		It("truncates the current block and replays from the same mark", func() {
			markA := st.AppendTuple(0, 100, 1, 1000, 0, oneCol(1), wire.OpInsert)
			Expect(markA).To(Equal(int64(0)))
			markB := st.AppendTuple(0, 100, 2, 1001, 0, oneCol(2), wire.OpInsert)

			st.RollbackTo(markB)
			Expect(st.USO()).To(Equal(markB))

			markC := st.AppendTuple(0, 100, 2, 1001, 0, oneCol(99), wire.OpInsert)
			Expect(markC).To(Equal(markB))
		})
	})

	Describe("generation change (S3)", func() {
		It("emits [gen5 block][EOS gen5][gen6 block]", func() {
			st.AppendTuple(0, 100, 1, 1000, 5, oneCol(1), wire.OpInsert)
			st.Commit(100, 100, false)

			st.SetSignatureAndGeneration("sig", 6)
			st.AppendTuple(100, 100, 2, 1001, 6, oneCol(2), wire.OpInsert)
			st.PeriodicFlush(-1, 100, 101)

			pushes := rec.Pushes()
			Expect(len(pushes)).To(BeNumerically(">=", 3))

			Expect(pushes[0].GenerationID).To(Equal(int64(5)))
			Expect(pushes[0].Block).NotTo(BeNil())
			Expect(pushes[0].EndOfStream).To(BeFalse())

			Expect(pushes[1].GenerationID).To(Equal(int64(5)))
			Expect(pushes[1].EndOfStream).To(BeTrue())
			Expect(pushes[1].Block).To(BeNil())

			Expect(pushes[2].GenerationID).To(Equal(int64(6)))
			Expect(pushes[2].EndOfStream).To(BeFalse())
		})
	})

	Describe("oversize row (S6)", func() {
		It("panics and leaves stream state unchanged", func() {
			small := txstream.New(1, 1, "sig", 64, rec)
			bigCol := []wire.Column{{Codec: wire.StringCodec{}, Val: string(make([]byte, 128))}}

			usoBefore := small.USO()
			Expect(func() {
				small.AppendTuple(0, 1, 1, 1, 0, bigCol, wire.OpInsert)
			}).To(Panic())
			Expect(small.USO()).To(Equal(usoBefore))
		})
	})

	Describe("invariants", func() {
		It("rejects a regressing txn id", func() {
			st.AppendTuple(0, 100, 1, 1000, 0, oneCol(1), wire.OpInsert)
			Expect(func() {
				st.AppendTuple(0, 99, 2, 1001, 0, oneCol(2), wire.OpInsert)
			}).To(Panic())
		})

		It("rejects rollback past the current tail", func() {
			mark := st.AppendTuple(0, 100, 1, 1000, 0, oneCol(1), wire.OpInsert)
			Expect(func() {
				st.RollbackTo(mark + 1000)
			}).To(Panic())
		})

		It("rejects SetDefaultCapacity once the stream is active", func() {
			st.AppendTuple(0, 100, 1, 1000, 0, oneCol(1), wire.OpInsert)
			Expect(func() { st.SetDefaultCapacity(8192) }).To(Panic())
		})

		It("never decreases generation", func() {
			st.SetSignatureAndGeneration("sig", 5)
			Expect(func() { st.SetSignatureAndGeneration("sig", 5) }).To(Panic())
			Expect(func() { st.SetSignatureAndGeneration("sig", 4) }).To(Panic())
		})
	})
})
