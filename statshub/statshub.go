// Package statshub is the process-wide stats sink both cores report into:
// a thin wrapper around a Prometheus registry, mirroring the teacher's
// "opaque host-wide stats agent" collaborator but implemented in-process
// since this module has no separate stats daemon to talk to.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package statshub

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheUse is the planner's cache-use stats enum: HIT, MISS or FAIL.
type CacheUse int

const (
	CacheHit CacheUse = iota
	CacheMiss
	CacheFail
)

func (c CacheUse) String() string {
	switch c {
	case CacheHit:
		return "hit"
	case CacheMiss:
		return "miss"
	case CacheFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Hub is the lazily-initialized process-wide stats singleton. Replaces the
// teacher's double-checked-lazy-init pattern with a sync.Once guard, per
// the design notes.
type Hub struct {
	ExportBytes   prometheus.Counter
	ExportRows    prometheus.Counter
	SinkPushes    prometheus.Counter
	PlanCacheUse  *prometheus.CounterVec
	PlanLatency   prometheus.Histogram
	LargeModeHits prometheus.Counter
}

var (
	once sync.Once
	hub  *Hub
)

// Get returns the singleton Hub, constructing and registering its metrics
// against the default Prometheus registry on first call. Lifecycle: built
// by the first caller - planner.New calls Get, so at the latest when the
// first planner.Facade is constructed unless a stream reported earlier -
// and lives until process exit.
func Get() *Hub {
	once.Do(func() {
		hub = &Hub{
			ExportBytes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txport_export_bytes_total",
				Help: "Total bytes handed off to the top end sink.",
			}),
			ExportRows: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txport_export_rows_total",
				Help: "Total rows appended to export streams.",
			}),
			SinkPushes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txport_sink_pushes_total",
				Help: "Total blocks (including EOS markers) pushed to the top end.",
			}),
			PlanCacheUse: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "txport_plan_cache_use_total",
				Help: "Ad-hoc plan cache outcomes, labeled hit/miss/fail.",
			}, []string{"outcome"}),
			PlanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "txport_plan_latency_seconds",
				Help:    "Wall-clock latency of planner.Facade.Plan calls.",
				Buckets: prometheus.DefBuckets,
			}),
			LargeModeHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "txport_large_mode_sampled_total",
				Help: "Queries forced into large-query mode by LARGE_MODE_RATIO sampling.",
			}),
		}
		prometheus.MustRegister(
			hub.ExportBytes, hub.ExportRows, hub.SinkPushes,
			hub.PlanCacheUse, hub.PlanLatency, hub.LargeModeHits,
		)
	})
	return hub
}

// RecordCacheUse increments the labeled cache-use counter.
func (h *Hub) RecordCacheUse(u CacheUse) {
	h.PlanCacheUse.WithLabelValues(u.String()).Inc()
}
