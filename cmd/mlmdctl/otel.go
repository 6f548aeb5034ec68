package main

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var traceEnabled bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "print spans and metrics to stderr as the command runs")
}

// setupTelemetry installs stdout-backed tracer/meter providers as the global
// defaults when --trace is set, so mlmd.Connect's otel.Tracer/otel.Meter
// calls produce visible output instead of the otel API's no-op default.
func setupTelemetry() (shutdown func(context.Context), err error) {
	if !traceEnabled {
		return func(context.Context) {}, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}, nil
}
