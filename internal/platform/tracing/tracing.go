// Package tracing wraps OpenTelemetry span handling for service operations.
// Without an installed SDK provider the global tracer is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/requestcontext"
)

const instrumentationName = "pawnshop"

// Tracer returns the named tracer from the global provider.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationName + "/" + component)
}

// Start opens a span tagged with the request id and actor role.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		attrs = append(attrs, attribute.String("request.id", reqID))
	}
	if role := requestcontext.Actor(ctx).Role; role != "" {
		attrs = append(attrs, attribute.String("actor.role", role))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End closes span. Only internal errors mark the span as failed; client
// errors are recorded as an attribute.
func End(span trace.Span, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		span.SetAttributes(attribute.String("error.code", string(code)))
		if code == dErrors.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
