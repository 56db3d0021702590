package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewObservedRecordsFields(t *testing.T) {
	log, logs := NewObserved(zapcore.InfoLevel)

	child := log.With(String("service", "test"))
	child.Debug("dropped")
	child.Warn("forwarding failed", Int("status", 502), Error(errors.New("boom")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["service"] != "test" || ctx["status"] != int64(502) || ctx["error"] != "boom" {
		t.Errorf("unexpected context %v", ctx)
	}
}

func TestNewAcceptsUnknownLevel(t *testing.T) {
	for _, pretty := range []bool{true, false} {
		if log := New("verbose", pretty); log == nil {
			t.Fatalf("New(verbose, %v) returned nil", pretty)
		}
	}
}
