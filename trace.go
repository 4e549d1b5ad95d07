package weft

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weft-dev/weft/pkg/reconcile"
)

// tracerName is the instrumentation scope WithTracing uses on the
// global OpenTelemetry provider. API surface only: the hosting
// application configures its own SDK, exporter and sampling.
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	r := weft.New(weft.WithTracing())
const tracerName = "weft"

// startSpan opens a weft.reconcile span; nil when tracing is off.
func (r *Reconciler) startSpan(ctx context.Context, contextKey string, partial bool) trace.Span {
	if r.tracer == nil {
		return nil
	}
	_, span := r.tracer.Start(ctx, "weft.reconcile",
		trace.WithAttributes(
			attribute.String("weft.context", contextKey),
			attribute.Bool("weft.partial", partial),
		))
	return span
}

func (r *Reconciler) endSpan(span trace.Span, res *reconcile.Result, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("weft.patch_count", res.Stats.Patches()),
			attribute.Int("weft.record_count", res.Stats.Records),
		)
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
