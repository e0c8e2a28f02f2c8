package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Appender is an output for log entries.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes entries as tab separated lines.
type ConsoleAppender struct {
	io.Writer
}

// NewWriterAppender returns an appender writing to w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

// Write writes one line for entry.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields)
	fmt.Fprintln(appender.Writer, line)
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// formatLine always returns a line; when the fields cannot be encoded it is returned without
// them, along with the error.
func formatLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := []string{entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String())}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, shortCaller(entry.Caller))
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}

	// zap's JSON encoder keeps fields in the order they were logged.
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	defer buf.Free()
	return strings.Join(append(parts, buf.String()), "\t"), nil
}

// shortCaller trims the caller path to "<dir>/<file>:<line>".
func shortCaller(caller zapcore.EntryCaller) string {
	file := caller.File
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		if j := strings.LastIndexByte(file[:i], '/'); j >= 0 {
			file = file[j+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, caller.Line)
}

// appenderCore adapts an Appender to a zapcore.Core that accepts every level.
type appenderCore struct {
	appender Appender
	fields   []zapcore.Field
}

func newAppenderCore(appender Appender) zapcore.Core {
	return &appenderCore{appender: appender}
}

func (c *appenderCore) Enabled(zapcore.Level) bool {
	return true
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{appender: c.appender, fields: c.withFields(fields)}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.appender.Write(entry, c.withFields(fields))
}

func (c *appenderCore) Sync() error {
	return c.appender.Sync()
}

func (c *appenderCore) withFields(fields []zapcore.Field) []zapcore.Field {
	if len(c.fields) == 0 {
		return fields
	}
	out := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	return append(append(out, c.fields...), fields...)
}
