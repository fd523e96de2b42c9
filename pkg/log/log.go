package log

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger atomic.Pointer[zap.SugaredLogger]
)

func init() {
	logger.Store(newLogger().Sugar())
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	// Callers go through this package's wrappers.
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel changes the minimum level of the package logger. Accepted values
// are the zap level names (debug, info, warn, error).
func SetLevel(name string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	level.SetLevel(lvl)
	return nil
}

// Use replaces the package logger, mostly for tests (zaptest, observer).
// Callers are reported past the package wrappers.
func Use(l *zap.Logger) {
	logger.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

func Sync() { _ = logger.Load().Sync() }

func Debug(v ...any) { logger.Load().Debug(v...) }

func Info(v ...any) { logger.Load().Info(v...) }

func Warn(v ...any) { logger.Load().Warn(v...) }

func Error(v ...any) { logger.Load().Error(v...) }

// Fatal logs at error level without exiting; callers decide how to terminate.
func Fatal(v ...any) {
	args := make([]any, 0, len(v)+1)
	args = append(args, "fatal: ")
	args = append(args, v...)
	logger.Load().Error(args...)
}

func Debugw(msg string, kv ...any) { logger.Load().Debugw(msg, kv...) }

func Infow(msg string, kv ...any) { logger.Load().Infow(msg, kv...) }

func Warnw(msg string, kv ...any) { logger.Load().Warnw(msg, kv...) }
