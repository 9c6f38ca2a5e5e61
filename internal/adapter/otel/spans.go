package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "buildnotify"

// StartBuildSpan starts a span covering the handling of one finished build.
func StartBuildSpan(ctx context.Context, project string, number int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "build",
		trace.WithAttributes(
			attribute.String("build.project", project),
			attribute.Int("build.number", number),
		),
	)
}

// StartDispatchSpan starts a span for one channel dispatch.
func StartDispatchSpan(ctx context.Context, channel, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.channel", channel),
			attribute.String("dispatch.provider", provider),
		),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
