/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package plancache_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/txport/plancache"
)

var _ = Describe("Cache", func() {
	var c *plancache.Cache

	BeforeEach(func() {
		c = plancache.New(16, 16)
	})

	Describe("exact SQL cache", func() {
		It("misses then hits the same SQL text", func() {
			_, ok := c.GetWithSQL("SELECT * FROM T WHERE id=1")
			Expect(ok).To(BeFalse())

			plan := &plancache.AdHocPlannedStatement{SQL: "SELECT * FROM T WHERE id=1"}
			c.Put("SELECT * FROM T WHERE id=1", "SELECT * FROM T WHERE id=?", plan, nil, false, false, false)

			got, ok := c.GetWithSQL("SELECT * FROM T WHERE id=1")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(plan))
		})
	})

	Describe("parameterized token cache", func() {
		It("matches a new literal tuple against a previously bound variant", func() {
			token := "SELECT * FROM T WHERE id=?"
			plan := &plancache.AdHocPlannedStatement{SQL: "SELECT * FROM T WHERE id=1", ParsedToken: token}
			lits := []plancache.Literal{{Type: plancache.LitInt64, Value: int64(1)}}
			c.Put("SELECT * FROM T WHERE id=1", token, plan, lits, false, false, false)

			variants, ok := c.GetWithParsedToken(token)
			Expect(ok).To(BeTrue())
			Expect(variants).To(HaveLen(1))

			newLits := []plancache.Literal{{Type: plancache.LitInt64, Value: int64(2)}}
			Expect(variants[0].AllowsParams(newLits)).To(BeTrue())

			mismatched := []plancache.Literal{{Type: plancache.LitString, Value: "2"}}
			Expect(variants[0].AllowsParams(mismatched)).To(BeFalse())
		})

		It("appends rather than replaces a second bound variant for the same token", func() {
			token := "SELECT * FROM T WHERE id=?"
			plan1 := &plancache.AdHocPlannedStatement{ParsedToken: token}
			plan2 := &plancache.AdHocPlannedStatement{ParsedToken: token}
			litsA := []plancache.Literal{{Type: plancache.LitInt64, Value: int64(1)}}
			litsB := []plancache.Literal{{Type: plancache.LitString, Value: "x"}}

			c.Put("sql-a", token, plan1, litsA, false, false, false)
			c.Put("sql-b", token, plan2, litsB, false, false, false)

			variants, ok := c.GetWithParsedToken(token)
			Expect(ok).To(BeTrue())
			Expect(variants).To(HaveLen(2))
		})
	})

	Describe("admission rule (S7)", func() {
		It("rejects forced partitioning", func() {
			plan := &plancache.AdHocPlannedStatement{SQL: "x"}
			c.Put("x", "x", plan, nil, true /*forced*/, false, false)
			Expect(c.LiteralSize()).To(Equal(0))
			Expect(c.CoreSize()).To(Equal(0))
		})

		It("rejects large-query mode", func() {
			plan := &plancache.AdHocPlannedStatement{SQL: "x"}
			c.Put("x", "x", plan, nil, false, true /*large*/, false)
			Expect(c.LiteralSize()).To(Equal(0))
		})

		It("rejects wrong parameter count", func() {
			plan := &plancache.AdHocPlannedStatement{SQL: "x"}
			c.Put("x", "x", plan, nil, false, false, true /*wrongParamCount*/)
			Expect(c.LiteralSize()).To(Equal(0))
		})
	})
})
