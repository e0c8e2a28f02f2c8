package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type slotState struct {
	Index int
	Kind  string
	duty  uint16
}

// nextLine splits the next console line into its tab separated parts.
func nextLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleLines(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWriterLogger("kit", buf, zapcore.DebugLevel)

	logger.Infow("servo kit ready")
	parts := nextLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2023-10-30T09:12:09.459Z"))
	test.That(t, strings.HasSuffix(parts[0], "Z"), test.ShouldBeTrue)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "kit")
	test.That(t, parts[3], test.ShouldStartWith, "logging/logger_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "servo kit ready")

	// Only exported fields are encoded.
	logger.Debugw("servo created", "slot", slotState{3, "standard", 0x1234}, "channel", 3)
	parts = nextLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	var fields map[string]interface{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields, test.ShouldResemble, map[string]interface{}{
		"slot":    map[string]interface{}{"Index": 3.0, "Kind": "standard"},
		"channel": 3.0,
	})

	logger.Sublogger("pca9685").Warnw("prescale clamped")
	parts = nextLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[2], test.ShouldEqual, "kit.pca9685")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWriterLogger("", buf, zapcore.InfoLevel)

	logger.Debugw("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.SetLevel(zapcore.ErrorLevel)
	logger.Infow("dropped")
	logger.Warnw("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Errorw("kept", "channel", 1)
	logger.Error("also kept")
	test.That(t, nextLine(t, buf)[3], test.ShouldEqual, "kept")
	test.That(t, nextLine(t, buf)[3], test.ShouldEqual, "also kept")
}

func TestSublogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("pca9685")
	channel := sub.Sublogger("channel")

	channel.Infow("duty set", "index", 1)
	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "pca9685.channel")
	test.That(t, entries[0].Message, test.ShouldEqual, "duty set")
	test.That(t, entries[0].ContextMap()["index"], test.ShouldEqual, int64(1))
	test.That(t, entries[0].Caller.File, test.ShouldEndWith, "logging/logger_test.go")

	// A sublogger's level is its own.
	sub.SetLevel(zapcore.WarnLevel)
	sub.Infow("dropped")
	channel.Infow("kept")
	logger.Debugw("kept")
	test.That(t, observed.Len(), test.ShouldEqual, 3)
}

func TestDebugContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWriterLogger("", buf, zapcore.InfoLevel)

	ctx := context.Background()
	test.That(t, DebugTag(ctx), test.ShouldEqual, "")
	logger.CDebugw(ctx, "dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	ctx = WithDebug(ctx, "")
	test.That(t, DebugTag(ctx), test.ShouldHaveLength, 6)
	test.That(t, DebugTag(WithDebug(context.Background(), "sweep")), test.ShouldEqual, "sweep")

	logger.CDebugw(ctx, "frequency set", "prescale", 121)
	parts := nextLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[3], test.ShouldEqual, "frequency set")
	var fields map[string]interface{}
	test.That(t, json.Unmarshal([]byte(parts[4]), &fields), test.ShouldBeNil)
	test.That(t, fields["prescale"], test.ShouldEqual, 121.0)
	test.That(t, fields[debugTagKey], test.ShouldEqual, DebugTag(ctx))
}
