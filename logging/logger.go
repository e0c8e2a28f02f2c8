package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to kits, drivers and commands.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})

	// CDebugw logs at debug level when the logger is at debug level or ctx was returned by
	// WithDebug. In the latter case the entry carries the context's debug tag.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" that starts at this logger's level
	// and writes to the same outputs.
	Sublogger(subname string) Logger
	SetLevel(level zapcore.Level)
	Sync() error
}

// zapLogger checks levels itself so that debug contexts can get past them. The cores below it
// accept every entry.
type zapLogger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

func newZapLogger(name string, level zapcore.Level, inUTC bool, cores ...zapcore.Core) *zapLogger {
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if inUTC {
		opts = append(opts, zap.WithClock(utcClock{}))
	}
	base := zap.New(zapcore.NewTee(cores...), opts...)
	if name != "" {
		base = base.Named(name)
	}
	return &zapLogger{level: zap.NewAtomicLevelAt(level), sugar: base.Sugar()}
}

func (l *zapLogger) Debugw(msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.DebugLevel) {
		l.sugar.Logw(zapcore.DebugLevel, msg, keysAndValues...)
	}
}

func (l *zapLogger) Infow(msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.InfoLevel) {
		l.sugar.Logw(zapcore.InfoLevel, msg, keysAndValues...)
	}
}

func (l *zapLogger) Warnw(msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.WarnLevel) {
		l.sugar.Logw(zapcore.WarnLevel, msg, keysAndValues...)
	}
}

func (l *zapLogger) Errorw(msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.ErrorLevel) {
		l.sugar.Logw(zapcore.ErrorLevel, msg, keysAndValues...)
	}
}

func (l *zapLogger) Error(args ...interface{}) {
	if l.level.Enabled(zapcore.ErrorLevel) {
		l.sugar.Log(zapcore.ErrorLevel, args...)
	}
}

func (l *zapLogger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if tag := DebugTag(ctx); tag != "" {
		l.sugar.Logw(zapcore.DebugLevel, msg, append(keysAndValues, debugTagKey, tag)...)
		return
	}
	if l.level.Enabled(zapcore.DebugLevel) {
		l.sugar.Logw(zapcore.DebugLevel, msg, keysAndValues...)
	}
}

func (l *zapLogger) Sublogger(subname string) Logger {
	return &zapLogger{level: zap.NewAtomicLevelAt(l.level.Level()), sugar: l.sugar.Named(subname)}
}

func (l *zapLogger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}
