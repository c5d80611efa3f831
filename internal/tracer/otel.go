package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "verichain/pkg/domain-errors"
)

// InstrumentationName scopes every span this package starts.
const InstrumentationName = "verichain"

// OTelTracer exports spans through OpenTelemetry. Every credential operation
// ends in a registry call, so spans are started as client spans.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

// WithOTelTracer replaces the tracer obtained from the global provider.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(otelAttributes(attrs)...),
	)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

// End tags the span with the error kind. Superseded results and missing
// credentials are answers, not faults, so they leave the status unset.
func (s *otelSpan) End(err error) {
	defer s.span.End()
	if err == nil {
		return
	}
	kind, fault := Outcome(err)
	s.span.SetAttributes(attribute.String(AttrErrorKind, string(kind)))
	if !fault {
		s.span.AddEvent(EventDiscarded)
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, string(kind))
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(otelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(otelAttributes(attrs)...))
}

// Outcome classifies err for tracing: its domain kind, and whether it is a
// fault worth an error status.
func Outcome(err error) (dErrors.Code, bool) {
	kind := dErrors.KindOf(err)
	switch kind {
	case dErrors.CodeSuperseded, dErrors.CodeNotFound:
		return kind, false
	default:
		return kind, true
	}
}

// otelAttributes accepts the value types the constructors in tracer.go
// produce; anything else is dropped.
func otelAttributes(attrs []Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		}
	}
	return out
}
