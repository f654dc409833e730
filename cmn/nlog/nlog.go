// Package nlog is a thin façade over a zap.SugaredLogger, mirroring the
// teacher's cmn/nlog package: a process-wide logger callers reach through
// package-level functions instead of threading a logger value everywhere.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	logger *zap.SugaredLogger
)

func get() *zap.SugaredLogger {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l.Sugar()
	})
	return logger
}

// SetLogger overrides the default production logger, e.g. with a
// development logger in cmd/tuplestreamd or a test's observed-logs core.
func SetLogger(l *zap.SugaredLogger) {
	once.Do(func() {})
	logger = l
}

func Infoln(args ...any)            { get().Infoln(args...) }
func Infof(format string, a ...any) { get().Infof(format, a...) }
func Errorln(args ...any)           { get().Errorln(args...) }
func Errorf(format string, a ...any) { get().Errorf(format, a...) }
func Warnln(args ...any)            { get().Warnln(args...) }
