/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package txstream

import (
	"context"
	"sync"
	"time"

	"github.com/NVIDIA/txport/cmn"
	"github.com/NVIDIA/txport/cmn/nlog"
	"github.com/NVIDIA/txport/sink"
)

// Manager owns one Stream per partition and removes the per-caller
// bookkeeping ("one stream per partition id, looked up under a lock")
// that any multi-partition host would otherwise re-derive. It does not
// change Stream semantics: each Stream obtained from a Manager is still
// single-writer.
type Manager struct {
	mu      sync.RWMutex
	streams map[int64]*Stream
	sink    sink.TopEndSink
}

// NewManager creates an empty Manager backed by the given sink, shared by
// every stream it creates.
func NewManager(s sink.TopEndSink) *Manager {
	return &Manager{streams: make(map[int64]*Stream), sink: s}
}

// GetOrCreate returns the stream for partitionID, creating it (with the
// process default block capacity) if this is the first time the
// partition is seen.
func (m *Manager) GetOrCreate(partitionID, siteID int64, signature string) *Stream {
	m.mu.RLock()
	st, ok := m.streams[partitionID]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.streams[partitionID]; ok {
		return st
	}
	st = New(partitionID, siteID, signature, cmn.GCO().DefaultCapacity, m.sink)
	m.streams[partitionID] = st
	return st
}

// Get returns the stream for partitionID if it already exists.
func (m *Manager) Get(partitionID int64) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.streams[partitionID]
	return st, ok
}

// Remove drops a partition's stream from the manager, e.g. after the
// partition has been migrated away. It does not flush it first - callers
// must PeriodicFlush(-1, ...) before removing if they want a final drain.
func (m *Manager) Remove(partitionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, partitionID)
}

// Run ticks every half of MaxBufferAgeMillis, calling an age-gated
// PeriodicFlush on every registered stream, mirroring the teacher's
// demand-xaction idle-tick pattern. It blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := time.Duration(cmn.GCO().MaxBufferAgeMillis/2) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			nlog.Infoln("txstream manager: stopping")
			return
		case now := <-ticker.C:
			m.tick(now.UnixMilli())
		}
	}
}

func (m *Manager) tick(nowMillis int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, st := range m.streams {
		st.PeriodicFlush(nowMillis, st.committedTxnID, st.openTxnID)
	}
}
