// Package logging wraps zap with the small surface the simulator needs.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is a named, levelled, structured logger.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
}

func (l impl) Named(name string) Logger {
	return impl{l.SugaredLogger.Named(name)}
}

// NewLoggerConfig is a console config without stacktraces and with coloured
// levels.
func NewLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newFromConfig(name string, cfg zap.Config) Logger {
	l, err := cfg.Build()
	if err != nil {
		// only reachable with a broken output path
		return NewNop()
	}
	return impl{l.Sugar().Named(name)}
}

// NewLogger logs Info and above to stderr.
func NewLogger(name string) Logger {
	return newFromConfig(name, NewLoggerConfig())
}

// NewDebugLogger logs Debug and above to stderr.
func NewDebugLogger(name string) Logger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return newFromConfig(name, cfg)
}

func NewNop() Logger {
	return impl{zap.NewNop().Sugar()}
}

// NewTestLogger routes Debug and above through tb.Log.
func NewTestLogger(tb testing.TB) Logger {
	return impl{zaptest.NewLogger(tb).Sugar()}
}

// NewObservedTestLogger is NewTestLogger that also records every entry for
// assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	tee := zapcore.NewTee(zaptest.NewLogger(tb).Core(), core)
	return impl{zap.New(tee).Sugar()}, logs
}
