package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldReference is the standardized structured logging key for catalog references.
	FieldReference = "reference"
	// FieldEventType tags log lines with a machine-readable event classification.
	FieldEventType = "event_type"
	// FieldErrorHint suggests an operator next step when something goes wrong.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for claim correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey string

const (
	referenceKey     contextKey = "reference"
	correlationIDKey contextKey = "correlation_id"
)

// WithReference stores the catalog reference being processed in the context.
func WithReference(ctx context.Context, reference string) context.Context {
	return context.WithValue(ctx, referenceKey, reference)
}

// WithCorrelationID stores a per-claim correlation identifier in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if ref, ok := ctx.Value(referenceKey).(string); ok && ref != "" {
		fields = append(fields, slog.String(FieldReference, ref))
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
