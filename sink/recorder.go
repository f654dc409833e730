/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sink

import (
	"sync"

	"github.com/NVIDIA/txport/memsys"
)

// Pushed captures one PushExportBuffer call, retained by Recorder for test
// assertions.
type Pushed struct {
	GenerationID int64
	PartitionID  int32
	Signature    string
	Block        *memsys.Block
	Sync         bool
	EndOfStream  bool
}

// Recorder is a TopEndSink test double that remembers every push in order.
// Safe for the writer goroutine only - same single-writer rule as Stream
// itself, the mutex just protects concurrent reads from a test goroutine.
type Recorder struct {
	mu     sync.Mutex
	pushes []Pushed
	FailOn func(p Pushed) error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) PushExportBuffer(generationID int64, partitionID int32, signature string, block *memsys.Block, sync bool, endOfStream bool) error {
	p := Pushed{generationID, partitionID, signature, block, sync, endOfStream}
	if r.FailOn != nil {
		if err := r.FailOn(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.pushes = append(r.pushes, p)
	r.mu.Unlock()
	return nil
}

// Pushes returns a snapshot of every push recorded so far.
func (r *Recorder) Pushes() []Pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pushed, len(r.pushes))
	copy(out, r.pushes)
	return out
}

// Channel is a reference TopEndSink that forwards pushes onto a buffered
// channel, the way a real top end would hand blocks to a background
// writer goroutine. It blocks once the channel is full, modeling sink
// backpressure.
type Channel struct {
	C chan Pushed
}

func NewChannel(capacity int) *Channel {
	return &Channel{C: make(chan Pushed, capacity)}
}

func (c *Channel) PushExportBuffer(generationID int64, partitionID int32, signature string, block *memsys.Block, sync bool, endOfStream bool) error {
	c.C <- Pushed{generationID, partitionID, signature, block, sync, endOfStream}
	return nil
}
