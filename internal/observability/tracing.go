package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with pipeline span helpers.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartRun starts the root span of one request.
func (t *Tracer) StartRun(ctx context.Context, name, runID, preferred string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "causalrt."+name, trace.WithAttributes(
		RunIDAttr(runID),
		PreferredAttr(preferred),
	))
}

// StartStage starts a span for one pipeline stage.
func (t *Tracer) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{StageAttr(stage)}, attrs...)
	return t.tracer.Start(ctx, "causalrt."+stage, trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks it failed.
func RecordError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(ErrorKindAttr(kind))
	span.SetStatus(codes.Error, err.Error())
}

// EndStage records err, if any, and ends the span.
func EndStage(span trace.Span, err error, kind string) {
	RecordError(span, err, kind)
	span.End()
}
