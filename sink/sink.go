// Package sink defines the TopEndSink contract: the opaque external
// consumer of committed export blocks. The stream transfers buffer
// ownership to the sink and never touches the bytes again.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sink

import "github.com/NVIDIA/txport/memsys"

// TopEndSink is implemented by the external consumer the top end exposes.
// Production implementations live outside this module; this package only
// carries the interface plus light-weight in-process doubles used by
// tests and the cmd/tuplestreamd demo.
type TopEndSink interface {
	// PushExportBuffer hands ownership of block's byte buffer to the sink.
	// block is nil only when endOfStream is true (a pure epoch terminator).
	// sync currently has no observed effect on any implementation; it is
	// carried on the interface for forward compatibility only.
	PushExportBuffer(generationID int64, partitionID int32, signature string, block *memsys.Block, sync bool, endOfStream bool) error
}
