// Package logging is a zap-backed structured logger. Entries are written as tab separated
// console lines: time, level, logger name, caller, message and JSON encoded fields.
package logging

import (
	"io"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeFormatStr is the timestamp layout of console lines.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// NewLogger returns a logger that writes info and above to stdout, timestamped in UTC.
func NewLogger(name string) Logger {
	return NewWriterLogger(name, os.Stdout, zapcore.InfoLevel)
}

// NewDebugLogger returns a logger that writes debug and above to stdout, timestamped in UTC.
func NewDebugLogger(name string) Logger {
	return NewWriterLogger(name, os.Stdout, zapcore.DebugLevel)
}

// NewWriterLogger returns a logger that writes level and above to w, timestamped in UTC.
func NewWriterLogger(name string, w io.Writer, level zapcore.Level) Logger {
	return newZapLogger(name, level, true, newAppenderCore(NewWriterAppender(w)))
}

// NewTestLogger returns a debug logger that writes through tb.Log in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observed := observer.New(zapcore.DebugLevel)
	return newZapLogger("", zapcore.DebugLevel, false, newAppenderCore(newTestAppender(tb)), observerCore), observed
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

func (utcClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
