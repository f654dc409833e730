/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package plancache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the two-keyed ad-hoc plan cache: literal SQL text maps to one
// plan, parsed tokens map to a list of bound variants. Both levels are
// bounded LRUs - golang-lru's Cache is safe for concurrent use on its own,
// so Cache needs no extra locking beyond what its caller (planner.Facade)
// already serializes with.
type Cache struct {
	literal *lru.Cache[string, *AdHocPlannedStatement]
	tokens  *lru.Cache[string, []BoundPlan]
}

// New builds a Cache with the given per-level LRU capacities.
func New(literalSize, coreSize int) *Cache {
	literal, err := lru.New[string, *AdHocPlannedStatement](literalSize)
	if err != nil {
		panic(err) // only returns an error for a non-positive size
	}
	tokens, err := lru.New[string, []BoundPlan](coreSize)
	if err != nil {
		panic(err)
	}
	return &Cache{literal: literal, tokens: tokens}
}

// GetWithSQL returns the plan cached for the exact SQL string, if any.
func (c *Cache) GetWithSQL(sql string) (*AdHocPlannedStatement, bool) {
	return c.literal.Get(sql)
}

// GetWithParsedToken returns every bound variant cached for a
// parameterized token. The caller filters by BoundPlan.AllowsParams.
func (c *Cache) GetWithParsedToken(token string) ([]BoundPlan, bool) {
	return c.tokens.Get(token)
}

// Put admits plan into both cache levels, unless forcedPartitioning,
// large or wrongParamCount reject it (§4.9's admission rule). sql and
// token index the same plan under its two lookup keys; extractedLiterals
// becomes the new bound variant's placeholder schema.
func (c *Cache) Put(sql, token string, plan *AdHocPlannedStatement, extractedLiterals []Literal, forcedPartitioning, large, wrongParamCount bool) {
	if forcedPartitioning || large || wrongParamCount {
		return
	}
	c.literal.Add(sql, plan)

	variant := BoundPlan{
		Core:              plan.Core,
		BoundConstants:    extractedLiterals,
		PlaceholderSchema: literalTypes(extractedLiterals),
	}
	variants, _ := c.tokens.Get(token)
	variants = append(variants, variant)
	c.tokens.Add(token, variants)
}

// LiteralSize reports the number of entries in the exact-SQL cache.
func (c *Cache) LiteralSize() int { return c.literal.Len() }

// CoreSize reports the number of parsed tokens with at least one bound
// variant cached.
func (c *Cache) CoreSize() int { return c.tokens.Len() }
