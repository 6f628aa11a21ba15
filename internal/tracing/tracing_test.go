package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"

	"github.com/abhisek/skillissue/internal/logger"
)

func newRecordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return New(tp, logger.Nop()), rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestSpanRecordsInputOutput(t *testing.T) {
	tr, rec := newRecordingTracer()

	_, span := tr.Start(context.Background(), "scheduler.tick", map[string]any{"tick_id": int64(4)})
	span.End(map[string]any{"selected": 2}, nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "scheduler.tick", ended[0].Name())
	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, int64(4), attrs["input.tick_id"].AsInt64())
	assert.Equal(t, int64(2), attrs["output.selected"].AsInt64())
	assert.Contains(t, attrs, "duration_ms")
}

func TestSpanRecordsError(t *testing.T) {
	tr, rec := newRecordingTracer()

	_, span := tr.Start(context.Background(), "mastery.record_answer", nil)
	span.End(nil, errors.New("not enrolled"))
	span.End(nil, nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestNestedSpansShareTrace(t *testing.T) {
	tr, rec := newRecordingTracer()

	ctx, parent := tr.Start(context.Background(), "parent", nil)
	_, child := tr.Start(ctx, "child", nil)
	child.End(nil, nil)
	parent.End(nil, nil)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}

func TestNilTracerIsFailOpen(t *testing.T) {
	var tr *Tracer
	ctx := context.Background()

	got, span := tr.Start(ctx, "anything", map[string]any{"k": "v"})
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() { span.End(nil, errors.New("x")) })

	var nilSpan *Span
	assert.Equal(t, int64(0), int64(nilSpan.End(nil, nil)))
}

type panickingProvider struct {
	embedded.TracerProvider
}

func (panickingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return panickingTracer{}
}

type panickingTracer struct {
	embedded.Tracer
}

func (panickingTracer) Start(context.Context, string, ...trace.SpanStartOption) (context.Context, trace.Span) {
	panic("backend exploded")
}

func TestPanickingBackendIsFailOpen(t *testing.T) {
	tr := New(panickingProvider{}, logger.Nop())

	var span *Span
	assert.NotPanics(t, func() {
		_, span = tr.Start(context.Background(), "x", nil)
	})
	assert.NotPanics(t, func() { span.End(nil, nil) })
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown := Setup(context.Background(), logger.Nop(), Config{})
	assert.NoError(t, shutdown(context.Background()))
}
