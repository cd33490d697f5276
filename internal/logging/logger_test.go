package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerExtractsComponent(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level, false))

	logger.Info("claim acquired",
		slog.String(FieldComponent, "worker"),
		slog.String(FieldReference, "trk-1"))

	line := buf.String()
	if !strings.Contains(line, "INFO worker: claim acquired") {
		t.Errorf("line = %q, want component prefix before message", line)
	}
	if !strings.Contains(line, "reference=trk-1") {
		t.Errorf("line = %q, want reference attribute", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("line = %q, component should be folded into the prefix", line)
	}
}

func TestConsoleHandlerOrdersJobAttrs(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level, false))

	// Logged in scrambled order; the line should read job identity first and
	// error detail last.
	logger.Error("upload failed",
		slog.Any("error", errors.New("connection reset")),
		slog.Int("attempt", 2),
		slog.String(FieldReference, "trk-9"),
		slog.String(FieldCorrelationID, "c41d"))

	line := buf.String()
	ref := strings.Index(line, "reference=")
	corr := strings.Index(line, "correlation_id=")
	attempt := strings.Index(line, "attempt=")
	errIdx := strings.Index(line, "error=")
	if ref < 0 || corr < 0 || attempt < 0 || errIdx < 0 {
		t.Fatalf("line = %q, missing expected attributes", line)
	}
	if !(ref < corr && corr < attempt && attempt < errIdx) {
		t.Errorf("line = %q, want reference, correlation_id, attempt, error in that order", line)
	}
}

func TestConsoleHandlerWithAttrsCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, level, false))
	logger := NewComponentLogger(base, "pipeline")

	logger.Info("stream opened")

	if line := buf.String(); !strings.Contains(line, "INFO pipeline: stream opened") {
		t.Errorf("line = %q, want component prefix from With", line)
	}
}

func TestJSONHandlerRenamesStandardKeys(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, level, false))

	logger.Warn("stream stalled", slog.String(FieldReference, "trk-2"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["msg"] != "stream stalled" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("expected ts key")
	}
}

func TestContextFields(t *testing.T) {
	ctx := WithReference(context.Background(), "trk-3")
	ctx = WithCorrelationID(ctx, "b2a7")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want reference and correlation id", fields)
	}
	if fields[0].Key != FieldReference || fields[0].Value.String() != "trk-3" {
		t.Errorf("first field = %v", fields[0])
	}
	if fields[1].Key != FieldCorrelationID || fields[1].Value.String() != "b2a7" {
		t.Errorf("second field = %v", fields[1])
	}
}
