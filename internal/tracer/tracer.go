// Package tracer provides tracing for statements and cache lookups.
// It wraps OpenTelemetry and defaults to a no-op tracer.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is the subset of an OpenTelemetry span used by the bookstore core.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer is the default tracer; it records nothing.
type NoopTracer struct{}

// StartSpan returns the context unchanged with a no-op span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

// NoopSpan is a span that does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (n *NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (n *NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (n *NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (n *NoopSpan) End() {}

// OtelTracer adapts an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer creates a new OpenTelemetry tracer adapter.
// The provided tracer must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts a new OpenTelemetry span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// otelSpan narrows trace.Span, whose RecordError and End take variadic options.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) { s.span.SetAttributes(attrs...) }

func (s *otelSpan) RecordError(err error) { s.span.RecordError(err) }

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) End() { s.span.End() }

// QueryMetadata describes one executed statement.
// Parameter values are deliberately absent; only their count is recorded.
type QueryMetadata struct {
	SQL       string
	ArgCount  int
	Duration  time.Duration
	Rows      int
	Error     error
	Database  string
	Operation string
	Table     string
}

// AddQueryAttributes adds database semantic convention attributes to a span.
// See: https://opentelemetry.io/docs/specs/semconv/database/
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Int("db.args", meta.ArgCount),
		attribute.Int("db.rows", meta.Rows),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}

	span.SetAttributes(attrs...)
	setStatus(span, meta.Error)
}

// CacheMetadata describes one cache operation.
type CacheMetadata struct {
	Operation string
	Kind      string
	Key       string
	Hit       bool
	Duration  time.Duration
	Error     error
}

// AddCacheAttributes adds cache attributes to a span.
func AddCacheAttributes(span Span, meta *CacheMetadata) {
	span.SetAttributes(
		attribute.String("cache.operation", meta.Operation),
		attribute.String("cache.kind", meta.Kind),
		attribute.String("cache.key", meta.Key),
		attribute.Bool("cache.hit", meta.Hit),
		attribute.Float64("cache.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	)
	setStatus(span, meta.Error)
}

func setStatus(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// DetectOperation returns SELECT, INSERT, UPDATE, DELETE or UNKNOWN for a statement.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "UNKNOWN"
}
