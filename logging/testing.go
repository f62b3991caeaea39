package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// testWriter routes encoded log lines to the underlying `testing.TB` so each line is
// associated with the test that produced it, including tests that run in parallel.
type testWriter struct {
	tb testing.TB
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.tb.Helper()
	tw.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (tw testWriter) Sync() error {
	return nil
}

func newTestCore(tb testing.TB, level zap.AtomicLevel) zapcore.Core {
	encoderConfig := NewEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), testWriter{tb}, level)
}
