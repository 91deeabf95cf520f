package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder() (*tracetest.SpanRecorder, *OtelTracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, NewOtelTracer(tp.Tracer("bookstore-test"))
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	// Should not panic
	got, span := tracer.StartSpan(ctx, "bookstore.query.select")
	assert.Equal(t, ctx, got)

	span.SetAttributes(attribute.String("key", "value"))
	span.RecordError(errors.New("test error"))
	span.SetStatus(codes.Error, "error")
	span.End()
}

func TestAddQueryAttributes(t *testing.T) {
	recorder, tracer := newRecorder()

	_, span := tracer.StartSpan(context.Background(), "bookstore.query.select")
	AddQueryAttributes(span, &QueryMetadata{
		SQL:       "SELECT Id FROM Story WHERE ((id = $1))",
		ArgCount:  1,
		Duration:  1500 * time.Microsecond,
		Rows:      1,
		Database:  "postgres",
		Operation: "SELECT",
		Table:     "Story",
	})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "bookstore.query.select", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "postgres", attrs["db.system"].AsString())
	assert.Equal(t, "SELECT", attrs["db.operation"].AsString())
	assert.Equal(t, "Story", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(1), attrs["db.args"].AsInt64())
	assert.InDelta(t, 1.5, attrs["db.duration_ms"].AsFloat64(), 0.001)
}

func TestAddQueryAttributes_Error(t *testing.T) {
	recorder, tracer := newRecorder()

	_, span := tracer.StartSpan(context.Background(), "bookstore.query.insert")
	AddQueryAttributes(span, &QueryMetadata{Operation: "INSERT", Error: errors.New("duplicate key")})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "duplicate key", spans[0].Status().Description)
	_, hasTable := attrMap(spans[0].Attributes())["db.sql.table"]
	assert.False(t, hasTable)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestAddCacheAttributes(t *testing.T) {
	recorder, tracer := newRecorder()

	_, span := tracer.StartSpan(context.Background(), "bookstore.cache.get")
	AddCacheAttributes(span, &CacheMetadata{Operation: "get", Kind: "story", Key: "bs-app-1-stories-000s1", Hit: true})
	span.End()

	attrs := attrMap(recorder.Ended()[0].Attributes())
	assert.Equal(t, "story", attrs["cache.kind"].AsString())
	assert.True(t, attrs["cache.hit"].AsBool())
	assert.Equal(t, "bs-app-1-stories-000s1", attrs["cache.key"].AsString())
}

func TestDetectOperation(t *testing.T) {
	tests := map[string]string{
		"SELECT Id FROM Story":                 "SELECT",
		"  insert into Story (Id) VALUES ($1)": "INSERT",
		"UPDATE Story SET Name = $1":           "UPDATE",
		"DELETE FROM Story WHERE id = $1":      "DELETE",
		"WITH x AS (SELECT 1) SELECT * FROM x": "UNKNOWN",
		"":                                     "UNKNOWN",
	}
	for sql, want := range tests {
		assert.Equal(t, want, DetectOperation(sql), sql)
	}
}
