// Package plancache implements the two-level ad-hoc plan cache: an exact
// SQL-text cache and a parameterized "parsed token" cache mapping to bound
// plan variants, each bounded by an LRU.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package plancache

// LiteralType tags the Go type a literal constant was extracted as.
type LiteralType int

const (
	LitNull LiteralType = iota
	LitInt64
	LitFloat64
	LitString
	LitBool
)

// Literal is one constant extracted from a query, either by the optimizer
// (a hard-coded SQL literal) or supplied by the caller as a bound
// parameter value.
type Literal struct {
	Type  LiteralType
	Value any
}

// CorePlan is the opaque, catalog-hash-independent compiled plan produced
// by the external parser/optimizer. Its fields are deliberately small and
// serializable (see snapshot.go) - the optimizer itself lives outside this
// module.
type CorePlan struct {
	ParsedToken string
	Fragment    []byte // opaque serialized execution fragment
}

// BoundPlan is a CorePlan specialized for one tuple of constant values,
// together with the placeholder schema a future literal tuple must match
// to reuse it.
type BoundPlan struct {
	Core              *CorePlan
	BoundConstants    []Literal
	PlaceholderSchema []LiteralType
}

// AllowsParams reports whether every literal in params is type-compatible
// with this variant's placeholder schema, in order.
func (b BoundPlan) AllowsParams(params []Literal) bool {
	if len(params) != len(b.PlaceholderSchema) {
		return false
	}
	for i, p := range params {
		if p.Type != b.PlaceholderSchema[i] {
			return false
		}
	}
	return true
}

// AdHocPlannedStatement is what PlannerFacade.Plan returns: a finalized
// plan together with the catalog hash it was compiled against.
type AdHocPlannedStatement struct {
	SQL            string
	ParsedToken    string
	Core           *CorePlan
	CatalogHash    string
	BoundConstants []Literal
}

func literalTypes(lits []Literal) []LiteralType {
	out := make([]LiteralType, len(lits))
	for i, l := range lits {
		out[i] = l.Type
	}
	return out
}
