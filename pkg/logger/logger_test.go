package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	l := New(LoggingConfig{Level: "debug", Format: "text"})
	if l.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", l.Logger.GetLevel())
	}
	if _, ok := l.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", l.Logger.Formatter)
	}

	fallback := New(LoggingConfig{Level: "loud"})
	if fallback.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", fallback.Logger.GetLevel())
	}
}

func TestNamedAndTraceFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggingConfig{Level: "info", Format: "json"})
	l.Logger.SetOutput(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	l.Named("people").Ctx(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["component"] != "people" {
		t.Fatalf("component = %v", line["component"])
	}
	if line["trace_id"] != "trace-1" {
		t.Fatalf("trace_id = %v", line["trace_id"])
	}
}

func TestTraceIDEmpty(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	if got := TraceID(ctx); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}
	if NewTraceID() == NewTraceID() {
		t.Fatal("trace ids should be unique")
	}
}
