// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logutil builds the process-wide zap logger.
package logutil

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// New builds a logger writing to stderr at level ("debug", "info", "warn",
// "error") with encoding "console" or "json".
func New(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	switch encoding {
	case "console", "json":
	default:
		return nil, fmt.Errorf("log encoding %q: want console or json", encoding)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// InitLogger builds the global logger. On a bad level or encoding it
// falls back to info/console and reports the problem on stderr.
func InitLogger(level, encoding string) *zap.Logger {
	l, err := New(level, encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logutil: %v, using info/console\n", err)
		l, _ = New("info", "console")
	}
	SetLogger(l)
	return l
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// GetLogger returns the global logger, a no-op logger until InitLogger
// or SetLogger is called.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
