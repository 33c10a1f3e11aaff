package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/CuracelDev/curacel-peoplev2-sub001"

// Standard attribute keys.
var (
	AttrProvider      = attribute.Key("people.provider")
	AttrIntegrationID = attribute.Key("people.integration_id")
	AttrEmployeeID    = attribute.Key("people.employee_id")
	AttrWorkflowID    = attribute.Key("people.workflow_id")
	AttrTaskID        = attribute.Key("people.task_id")
	AttrOperation     = attribute.Key("people.operation")
)

// Tracer returns the package-level tracer for creating spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span on the package tracer with attrs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return Tracer().Start(ctx, name, opts...)
}

// EndSpan ends a span, marking it failed when err is non-nil or ok is false.
func EndSpan(span trace.Span, ok bool, err error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !ok:
		span.SetStatus(codes.Error, "operation reported failure")
	}
	span.End()
}
