// Package zlogprof is zlog's self-diagnostics channel: the place zlog
// reports its own failures (a write that could not be retried, a rotation
// that could not acquire its lock, a config reload that failed) without
// ever touching the rule-matching pipeline it is diagnosing. It is
// deliberately a separate, always-on logger built on the same stack the
// rest of the corpus uses for its own internal logging (zap + lumberjack)
// rather than zlog's own Category/Rule machinery, so a misconfigured rule
// table can never silence the diagnostics that would explain it.
package zlogprof

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables selecting where the two profile loggers write.
// Unset means "discard" (the common case: a correctly configured zlog
// should produce nothing here).
const (
	EnvErrorPath = "ZLOG_PROFILE_ERROR"
	EnvDebugPath = "ZLOG_PROFILE_DEBUG"
)

var (
	mu          sync.RWMutex
	errorLogger = zap.NewNop()
	debugLogger = zap.NewNop()
)

func init() {
	configureFromEnv()
}

// configureFromEnv (re)builds both loggers from the current environment.
// Exported as Configure for callers (tests, cmd/zlogtail) that want to
// redirect the profile channel without relying on process environment.
func configureFromEnv() {
	Configure(os.Getenv(EnvErrorPath), os.Getenv(EnvDebugPath))
}

// Configure points the error and debug profile loggers at the given file
// paths ("" discards, "stderr"/"stdout" go to the corresponding stream).
// Both files, when given, are rotated with lumberjack so the profile
// channel itself can never grow without bound.
func Configure(errorPath, debugPath string) {
	mu.Lock()
	defer mu.Unlock()
	errorLogger = buildLogger(errorPath, zapcore.WarnLevel)
	debugLogger = buildLogger(debugPath, zapcore.DebugLevel)
}

func buildLogger(path string, level zapcore.Level) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var ws zapcore.WriteSyncer
	switch path {
	case "stderr":
		ws = zapcore.AddSync(os.Stderr)
	case "stdout":
		ws = zapcore.AddSync(os.Stdout)
	default:
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			Compress:   false,
		})
	}

	return zap.New(zapcore.NewCore(encoder, ws, level))
}

// Error reports a condition worth surfacing even in production: a failed
// write after retries were exhausted, a rotation lock that could not be
// acquired, a reload that failed and left the prior configuration active.
func Error(format string, args ...any) {
	mu.RLock()
	l := errorLogger
	mu.RUnlock()
	l.Sugar().Warnf(format, args...)
}

// Debug reports conditions only useful while developing or diagnosing
// zlog itself, such as a record rule whose sink is not registered.
func Debug(format string, args ...any) {
	mu.RLock()
	l := debugLogger
	mu.RUnlock()
	l.Sugar().Debugf(format, args...)
}
