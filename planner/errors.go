/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package planner

// PlanError is a user-facing planning failure: bad SQL, wrong parameter
// count, or anything else the caller is expected to fix and retry. Never
// wrapped with a stack trace - it is returned, not logged as a bug.
type PlanError struct {
	msg string
}

func (e *PlanError) Error() string { return e.msg }

func newPlanError(msg string) *PlanError { return &PlanError{msg: msg} }

// CompileError wraps a failure from the external optimizer. Unlike
// PlanError it carries the underlying cause (with a stack trace attached
// by cmn.WrapCompileError) for diagnostic logging.
type CompileError struct {
	err error
}

func (e *CompileError) Error() string { return e.err.Error() }
func (e *CompileError) Unwrap() error { return e.err }
