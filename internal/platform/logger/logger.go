// Package logger wraps zap's sugared logger with key-based scrubbing of
// credentials and user identifiers.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         scrubber
}

// New builds a logger for mode:
//
//	production, prod  JSON at info (LOG_LEVEL overrides)
//	test              console, warnings and above
//	anything else     console at debug (LOG_LEVEL overrides)
func New(mode string) (*Logger, error) {
	var (
		cfg   zap.Config
		level zapcore.Level
	)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg, level = zap.NewProductionConfig(), envLevel(zap.InfoLevel)
	case "test":
		cfg, level = zap.NewDevelopmentConfig(), zap.WarnLevel
	default:
		cfg, level = zap.NewDevelopmentConfig(), envLevel(zap.DebugLevel)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), scrub: scrubberFromEnv()}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func envLevel(def zapcore.Level) zapcore.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if lvl.UnmarshalText([]byte(raw)) != nil {
		return def
	}
	return lvl
}

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.scrub.kvs(kv)...)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.SugaredLogger.Infow(msg, l.scrub.kvs(kv)...)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.scrub.kvs(kv)...)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.scrub.kvs(kv)...)
}

func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.scrub.kvs(kv)...)
}

// With returns a child logger carrying kv on every line.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.kvs(kv)...), scrub: l.scrub}
}
