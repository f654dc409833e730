// Package cmn holds the ambient stack shared by the export stream and the
// ad-hoc planner: configuration, fatal-error helpers and debug assertions.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvariantViolation is raised (via panic) whenever a core invariant of the
// export stream or plan cache is broken. These are never recovered inside
// the core packages - the caller at the process boundary decides whether to
// log-and-exit or let the process crash.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string { return e.msg }

// Fatalf panics with an *InvariantViolation. Reserved for conditions the
// spec classifies as unrecoverable: txn-id regression, rollback past the
// current tail, set-capacity after first use, generation regression,
// oversized rows, allocation failure, sink push failure.
func Fatalf(format string, args ...any) {
	panic(&InvariantViolation{msg: fmt.Sprintf(format, args...)})
}

// AssertMsg panics with msg when cond is false.
func AssertMsg(cond bool, msg string) {
	if !cond {
		Fatalf("assertion failed: %s", msg)
	}
}

// WrapCompileError wraps an internal compiler/optimizer failure with a
// stack trace, per the "internal compile errors are logged with a stack
// trace and surfaced with the original message" rule.
func WrapCompileError(err error, context string) error {
	return errors.Wrapf(err, "compile error: %s", context)
}
