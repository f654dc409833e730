/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package planner_test

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/txport/plancache"
	"github.com/NVIDIA/txport/planner"
)

var errBoom = errors.New("optimizer exploded")

// fakeOptimizer is the test double standing in for the external
// parser/optimizer. It counts calls so tests can assert the cache, not the
// optimizer, answered a given Plan call.
type fakeOptimizer struct {
	calls  int32
	answer func(sql string) (*planner.CompiledPlan, error)
}

func (f *fakeOptimizer) Compile(_ context.Context, sql string) (*planner.CompiledPlan, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.answer(sql)
}

func (f *fakeOptimizer) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

var _ = Describe("Facade", func() {
	var opt *fakeOptimizer
	var cache *plancache.Cache
	var f *planner.Facade

	BeforeEach(func() {
		opt = &fakeOptimizer{answer: func(sql string) (*planner.CompiledPlan, error) {
			return &planner.CompiledPlan{
				ParsedToken: sql,
				Core:        &plancache.CorePlan{ParsedToken: sql},
			}, nil
		}}
		cache = plancache.New(16, 16)
		f = planner.New(cache, opt, func() string { return "catalog-v1" })
	})

	Describe("exact SQL cache hit (S4)", func() {
		It("serves the second identical call from cache without touching the optimizer", func() {
			sql := "SELECT * FROM orders WHERE id = 1"

			stmt1, err := f.Plan(context.Background(), sql, planner.PartitioningInferred, false, nil, false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opt.Calls()).To(Equal(1))

			stmt2, err := f.Plan(context.Background(), sql, planner.PartitioningInferred, false, nil, false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opt.Calls()).To(Equal(1), "second identical call must not reinvoke the optimizer")
			Expect(stmt2).To(Equal(stmt1))
			Expect(stmt2.CatalogHash).To(Equal("catalog-v1"))
		})
	})

	Describe("parameterized token cache hit (S5)", func() {
		It("binds a new literal tuple against a previously cached variant", func() {
			token := "SELECT * FROM orders WHERE id = ?"
			opt.answer = func(sql string) (*planner.CompiledPlan, error) {
				return &planner.CompiledPlan{
					ParsedToken:   token,
					QuestionMarks: 1,
					Core:          &plancache.CorePlan{ParsedToken: token},
				}, nil
			}

			first := []plancache.Literal{{Type: plancache.LitInt64, Value: int64(1)}}
			stmt1, err := f.Plan(context.Background(), "SELECT * FROM orders WHERE id = 1", planner.PartitioningInferred, false, first, false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opt.Calls()).To(Equal(1))
			Expect(stmt1.BoundConstants).To(Equal(first))

			second := []plancache.Literal{{Type: plancache.LitInt64, Value: int64(2)}}
			stmt2, err := f.Plan(context.Background(), "SELECT * FROM orders WHERE id = 2", planner.PartitioningInferred, false, second, false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opt.Calls()).To(Equal(2), "new SQL text always round-trips the optimizer once for its token")
			Expect(stmt2.Core).To(BeIdenticalTo(stmt1.Core))
			Expect(stmt2.BoundConstants).To(Equal(second))
		})
	})

	Describe("wrong parameter count", func() {
		It("rejects without admitting the plan into the cache", func() {
			opt.answer = func(sql string) (*planner.CompiledPlan, error) {
				return &planner.CompiledPlan{ParsedToken: sql, QuestionMarks: 2, Core: &plancache.CorePlan{ParsedToken: sql}}, nil
			}
			_, err := f.Plan(context.Background(), "SELECT * FROM orders WHERE id = ? AND site = ?", planner.PartitioningInferred, false, nil, false, false)
			Expect(err).To(HaveOccurred())
			Expect(cache.LiteralSize()).To(Equal(0))
		})
	})

	Describe("large-query mode", func() {
		It("never admits a plan compiled in large mode", func() {
			_, err := f.Plan(context.Background(), "SELECT * FROM big_table", planner.PartitioningInferred, false, nil, false, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.LiteralSize()).To(Equal(0))
		})
	})

	Describe("forced partitioning", func() {
		It("never admits a plan the caller forced the partitioning for", func() {
			_, err := f.Plan(context.Background(), "SELECT * FROM orders", planner.PartitioningForced, false, nil, false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.LiteralSize()).To(Equal(0))
		})
	})

	Describe("optimizer failure", func() {
		It("wraps the underlying error", func() {
			opt.answer = func(sql string) (*planner.CompiledPlan, error) {
				return nil, errBoom
			}
			_, err := f.Plan(context.Background(), "SELECT broken", planner.PartitioningInferred, false, nil, false, false)
			Expect(err).To(HaveOccurred())
			var ce *planner.CompileError
			Expect(err).To(BeAssignableToTypeOf(ce))
		})
	})
})
