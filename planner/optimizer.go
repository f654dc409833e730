// Package planner implements the PlannerFacade: the single entry point
// that serializes calls into the (simulated) non-reentrant SQL optimizer,
// consults the ad-hoc plan cache, applies large-mode sampling, and
// reports cache-use statistics.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package planner

import (
	"context"

	"github.com/NVIDIA/txport/plancache"
)

// CompiledPlan is what the external parser/optimizer hands back for one
// SQL string.
type CompiledPlan struct {
	ParsedToken       string
	QuestionMarks     int
	ExtractedLiterals []plancache.Literal
	IsParameterized   bool
	Core              *plancache.CorePlan
}

// Optimizer is the out-of-scope external collaborator: the SQL parser and
// relational optimizer, consumed here only through this interface. It is
// not reentrant - Facade.Plan never calls it from two goroutines at once.
type Optimizer interface {
	Compile(ctx context.Context, sql string) (*CompiledPlan, error)
}
