// internal/logger/logger.go
// Package logger owns the process logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process logger. It is a no-op until Initialize is called,
// so packages may log before configuration has been read.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize routes logs to path. An empty path keeps the no-op logger:
// the practice TUI owns the terminal and stray writes would corrupt it.
// debug lowers the level from Info to Debug.
func Initialize(path string, debug bool) error {
	if path == "" {
		Logger = zap.NewNop().Sugar()
		return nil
	}

	l, err := build(path, debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	Logger = l.Sugar()
	return nil
}

func build(path string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

// Named returns a child of Logger tagged with component.
func Named(component string) *zap.SugaredLogger {
	return Logger.Named(component)
}

// Sync flushes buffered entries. Errors from syncing a closed or
// non-syncable sink are ignored.
func Sync() {
	_ = Logger.Sync()
}
