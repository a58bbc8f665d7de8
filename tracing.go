package tmi

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "git.sr.ht/~taiite/tmi"

// startSpan starts the span of a command call.  Spans are no-ops unless the
// application installed a tracer provider.
func startSpan(ctx context.Context, command string, args []string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("tmi.command", command)}
	if len(args) != 0 {
		attrs = append(attrs, attribute.String("tmi.target", args[0]))
	}
	return otel.Tracer(tracerName).Start(ctx, "tmi."+command, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
