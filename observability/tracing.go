package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tributo/courier"

// Tracer wraps an OpenTelemetry tracer for the delivery pipeline.
// A nil *Tracer disables tracing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer on the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartPhase starts a span for one delivery phase of a document.
func (t *Tracer) StartPhase(ctx context.Context, phase, documentID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "courier."+phase,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("courier.phase", phase),
			attribute.String("courier.document_id", documentID),
		))
}

// EndPhase finishes a phase span, recording err if non-nil.
func (t *Tracer) EndPhase(span trace.Span, err error) {
	if t == nil || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
