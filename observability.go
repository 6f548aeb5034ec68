package mlmd

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// otelInstruments holds the metric instruments shared by every wrapped
// public operation, grounded on the teacher's dolt package's doltMetrics
// struct-of-instruments registered once at store construction.
type otelInstruments struct {
	requestCount metric.Int64Counter
	errorCount   metric.Int64Counter
	duration     metric.Float64Histogram
}

func newOtelInstruments(m metric.Meter) otelInstruments {
	var i otelInstruments
	i.requestCount, _ = m.Int64Counter("mlmd.store.requests",
		metric.WithDescription("MetadataStore operations started"),
		metric.WithUnit("{operation}"),
	)
	i.errorCount, _ = m.Int64Counter("mlmd.store.errors",
		metric.WithDescription("MetadataStore operations that returned an error"),
		metric.WithUnit("{operation}"),
	)
	i.duration, _ = m.Float64Histogram("mlmd.store.duration",
		metric.WithDescription("MetadataStore operation duration"),
		metric.WithUnit("ms"),
	)
	return i
}

// withSpan starts a span named "mlmd.<op>", runs fn, records duration and
// error metrics, and ends the span, following the endSpan(span, retErr)
// pattern the teacher's dolt store wraps every SQL-facing method with. Any
// error fn returns that is not already a classified *Error is classified via
// wrapErr before it reaches the caller.
func (s *MetadataStore) withSpan(ctx context.Context, op string, fn func(ctx context.Context) error) (retErr error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "mlmd."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", string(s.dialect.Name()))),
	)
	defer func() {
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		attrs := metric.WithAttributes(attribute.String("operation", op))
		s.ops.requestCount.Add(ctx, 1, attrs)
		s.ops.duration.Record(ctx, elapsed, attrs)
		if retErr != nil {
			s.ops.errorCount.Add(ctx, 1, attrs)
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()
	return wrapErr(op, fn(ctx))
}
