// Package tracing is the optional observability hook for engine operations.
//
// Span handles are explicit values: the caller that starts a span owns it and
// ends it. Nothing is kept in a process-wide registry. Every method is safe on
// a nil receiver and recovers from panics in the backend, so tracing never
// changes an operation's outcome.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/skillissue/internal/logger"
)

const instrumentationName = "github.com/abhisek/skillissue"

// Tracer starts spans.
type Tracer struct {
	tracer trace.Tracer
	log    *logger.Logger
}

// New wraps an otel tracer. A nil tp uses the global provider.
func New(tp trace.TracerProvider, log *logger.Logger) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Tracer{tracer: tp.Tracer(instrumentationName), log: log}
}

// Span is a handle for one in-flight operation.
type Span struct {
	span  trace.Span
	name  string
	start time.Time
	log   *logger.Logger
	ended bool
}

// Start opens a span named name with input recorded as attributes. The
// returned context carries the span so nested spans become its children.
func (t *Tracer) Start(ctx context.Context, name string, input map[string]any) (out context.Context, s *Span) {
	out, s = ctx, &Span{name: name, start: time.Now()}
	if t == nil || t.tracer == nil {
		return out, s
	}
	s.log = t.log
	defer func() {
		if r := recover(); r != nil {
			t.log.Warn("tracing start panicked", "span", name, "panic", fmt.Sprint(r))
			out, s.span = ctx, nil
		}
	}()

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes("input.", input)...))
	s.span = span
	return spanCtx, s
}

// End closes the span, recording output, err and the elapsed duration.
// It returns the duration. Calling End twice is a no-op the second time.
func (s *Span) End(output map[string]any, err error) (d time.Duration) {
	if s == nil {
		return 0
	}
	d = time.Since(s.start)
	if s.ended || s.span == nil {
		s.ended = true
		return d
	}
	s.ended = true
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Warn("tracing end panicked", "span", s.name, "panic", fmt.Sprint(r))
		}
	}()

	attrs := attributes("output.", output)
	attrs = append(attrs, attribute.Int64("duration_ms", d.Milliseconds()))
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
	return d
}

func attributes(prefix string, m map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		key := prefix + k
		switch tv := v.(type) {
		case string:
			out = append(out, attribute.String(key, tv))
		case int:
			out = append(out, attribute.Int(key, tv))
		case int64:
			out = append(out, attribute.Int64(key, tv))
		case float64:
			out = append(out, attribute.Float64(key, tv))
		case bool:
			out = append(out, attribute.Bool(key, tv))
		default:
			out = append(out, attribute.String(key, fmt.Sprint(v)))
		}
	}
	return out
}
