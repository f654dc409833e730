package planner

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NVIDIA/txport/cmn"
	"github.com/NVIDIA/txport/cmn/nlog"
	"github.com/NVIDIA/txport/plancache"
	"github.com/NVIDIA/txport/statshub"
)

// Partitioning tells Plan whether the caller already decided how this
// statement must be partitioned (Forced) or left it for the cache/optimizer
// to infer (Inferred). A forced choice is never admitted into the cache,
// since the next caller with the same SQL text may force a different one.
type Partitioning int

const (
	PartitioningInferred Partitioning = iota
	PartitioningForced
)

// Facade is the single entry point onto the ad-hoc plan cache and the
// external optimizer. It serializes Plan calls with a one-slot semaphore
// because the optimizer collaborator is not reentrant, mirroring the
// teacher's single-flight pattern around its own non-reentrant
// collaborators. One Facade is shared process-wide.
type Facade struct {
	cache       *plancache.Cache
	optimizer   Optimizer
	sem         *semaphore.Weighted
	catalogHash func() string
}

// New builds a Facade around cache and optimizer. catalogHash is called
// once per successful compile to stamp the resulting plan with the schema
// version it was planned against.
func New(cache *plancache.Cache, optimizer Optimizer, catalogHash func() string) *Facade {
	statshub.Get()
	return &Facade{
		cache:       cache,
		optimizer:   optimizer,
		sem:         semaphore.NewWeighted(1),
		catalogHash: catalogHash,
	}
}

// Plan resolves sql to a finalized, catalog-stamped statement: a plan
// cache hit when one applies, otherwise a serialized round trip through
// the optimizer followed by cache admission. large, when true (or when
// LARGE_MODE_RATIO sampling promotes an ordinary call), bypasses the
// cache entirely in both directions - large-query plans are never reused.
func (f *Facade) Plan(ctx context.Context, sql string, partitioning Partitioning, explain bool, userParams []plancache.Literal, swapTables bool, large bool) (_ *plancache.AdHocPlannedStatement, rerr error) {
	start := time.Now()
	outcome := statshub.CacheMiss
	defer func() {
		statshub.Get().RecordCacheUse(outcome)
		statshub.Get().PlanLatency.Observe(time.Since(start).Seconds())
	}()

	if err := f.sem.Acquire(ctx, 1); err != nil {
		outcome = statshub.CacheFail
		return nil, err
	}
	defer f.sem.Release(1)

	sql = strings.TrimSpace(sql)
	if sql == "" {
		outcome = statshub.CacheFail
		return nil, newPlanError("empty statement")
	}

	if !large && cmn.GCO().LargeModeRatio > 0 && rand.Float64() < cmn.GCO().LargeModeRatio {
		large = true
		statshub.Get().LargeModeHits.Inc()
	}

	cacheable := partitioning == PartitioningInferred && !large && !swapTables

	if cacheable {
		if stmt, ok := f.cache.GetWithSQL(sql); ok {
			outcome = statshub.CacheHit
			return stmt, nil
		}
	}

	compiled, err := f.optimizer.Compile(ctx, sql)
	if err != nil {
		outcome = statshub.CacheFail
		wrapped := cmn.WrapCompileError(err, sql)
		nlog.Errorf("planner: compile failed: %+v", wrapped)
		return nil, &CompileError{err: wrapped}
	}

	wrongParamCount := compiled.QuestionMarks != len(userParams)
	if wrongParamCount && !explain {
		outcome = statshub.CacheFail
		return nil, newPlanError("statement declares a different number of parameters than were supplied")
	}

	bindWith := bindLiterals(compiled, userParams)

	if cacheable && !wrongParamCount {
		if variants, ok := f.cache.GetWithParsedToken(compiled.ParsedToken); ok {
			for _, v := range variants {
				if v.AllowsParams(bindWith) {
					stmt := &plancache.AdHocPlannedStatement{
						SQL:            sql,
						ParsedToken:    compiled.ParsedToken,
						Core:           v.Core,
						CatalogHash:    f.catalogHash(),
						BoundConstants: bindWith,
					}
					f.cache.Put(sql, compiled.ParsedToken, stmt, bindWith, false, large, wrongParamCount)
					outcome = statshub.CacheHit
					return stmt, nil
				}
			}
		}
	}

	stmt := &plancache.AdHocPlannedStatement{
		SQL:            sql,
		ParsedToken:    compiled.ParsedToken,
		Core:           compiled.Core,
		CatalogHash:    f.catalogHash(),
		BoundConstants: bindWith,
	}
	forcedPartitioning := partitioning == PartitioningForced
	f.cache.Put(sql, compiled.ParsedToken, stmt, bindWith, forcedPartitioning, large, wrongParamCount)
	return stmt, nil
}

// bindLiterals picks which literal tuple a freshly compiled plan should be
// bound against: the optimizer's own extracted constants when it compiled
// the statement as parameterized, otherwise the caller's bound parameters
// when the statement actually used placeholders, otherwise none.
func bindLiterals(compiled *CompiledPlan, userParams []plancache.Literal) []plancache.Literal {
	switch {
	case compiled.IsParameterized:
		return compiled.ExtractedLiterals
	case compiled.QuestionMarks > 0:
		return userParams
	default:
		return nil
	}
}
