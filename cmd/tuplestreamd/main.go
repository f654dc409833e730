// Command tuplestreamd wires together a txstream.Manager, a plancache.Cache
// and a planner.Facade behind an HTTP surface: /metrics for Prometheus,
// /debug/plans for a JSON dump of the cache sizes, and a signal-driven
// shutdown that stops the flush ticker and the HTTP server. Shutdown does
// not wait for an in-progress flush and does not drain pending blocks.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NVIDIA/txport/cmn"
	"github.com/NVIDIA/txport/cmn/nlog"
	"github.com/NVIDIA/txport/plancache"
	"github.com/NVIDIA/txport/planner"
	"github.com/NVIDIA/txport/sink"
	"github.com/NVIDIA/txport/txstream"
)

var cli struct {
	Addr            string `help:"HTTP listen address for /metrics and /debug/plans." default:":9440"`
	DefaultCapacity int    `help:"Default export block capacity in bytes." default:"1048576"`
	MaxBufferAgeMs  int64  `help:"Maximum age of an uncommitted buffer before a mandatory flush, in milliseconds." default:"4000"`
	Dev             bool   `help:"Use a development (console-encoded) logger instead of the production JSON one."`
}

func main() {
	kong.Parse(&cli)

	if cli.Dev {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		nlog.SetLogger(l.Sugar())
	}

	os.Setenv("TXPORT_DEFAULT_CAPACITY", strconv.Itoa(cli.DefaultCapacity))
	os.Setenv("TXPORT_MAX_BUFFER_AGE_MS", strconv.FormatInt(cli.MaxBufferAgeMs, 10))
	cfg := cmn.LoadConfig()
	nlog.Infof("tuplestreamd starting: default_capacity=%d max_buffer_age_ms=%d", cfg.DefaultCapacity, cfg.MaxBufferAgeMillis)

	topEnd := sink.NewChannel(1024)
	mgr := txstream.NewManager(topEnd)

	cache := plancache.New(cfg.PlanCacheLiteralSize, cfg.PlanCacheCoreSize)
	facade := planner.New(cache, &passthroughOptimizer{}, func() string { return "catalog-v1" })

	ctx, cancel := context.WithCancel(context.Background())
	go mgr.Run(ctx)
	go drainSink(ctx, topEnd)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/plans", debugPlansHandler(facade, cache))

	srv := &http.Server{Addr: cli.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Errorf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	nlog.Infoln("tuplestreamd: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		nlog.Errorf("http server shutdown: %v", err)
	}
}

// drainSink stands in for the real top-end consumer: it just logs every
// pushed block so the binary is runnable standalone for manual testing.
func drainSink(ctx context.Context, ch *sink.Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-ch.C:
			if p.EndOfStream {
				nlog.Infof("sink: EOS partition=%d generation=%d", p.PartitionID, p.GenerationID)
				continue
			}
			nlog.Infof("sink: block partition=%d generation=%d bytes=%d", p.PartitionID, p.GenerationID, len(p.Block.Bytes()))
		}
	}
}

// debugPlansHandler dumps the current sizes of both plan cache levels as
// JSON, using json-iterator in place of encoding/json to match the
// teacher's debug-endpoint convention. The facade argument is unused; no
// catalog hash is reported.
func debugPlansHandler(_ *planner.Facade, cache *plancache.Cache) http.HandlerFunc {
	type dump struct {
		LiteralCacheSize int `json:"literal_cache_size"`
		TokenCacheSize   int `json:"token_cache_size"`
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := jsoniter.NewEncoder(w)
		_ = enc.Encode(dump{
			LiteralCacheSize: cache.LiteralSize(),
			TokenCacheSize:   cache.CoreSize(),
		})
	}
}

// passthroughOptimizer is a minimal stand-in for the real external
// parser/optimizer this daemon would otherwise shell out to: it counts
// every "?" in the text as a parameter and uses the statement text itself,
// with whitespace runs collapsed to single spaces, as the parsed token.
// Literals are not replaced by placeholders. Good enough to exercise the
// wiring; not a query planner.
type passthroughOptimizer struct{}

func (passthroughOptimizer) Compile(_ context.Context, sql string) (*planner.CompiledPlan, error) {
	token := strings.Join(strings.Fields(sql), " ")
	return &planner.CompiledPlan{
		ParsedToken:   token,
		QuestionMarks: strings.Count(sql, "?"),
		Core:          &plancache.CorePlan{ParsedToken: token, Fragment: []byte(token)},
	}, nil
}
