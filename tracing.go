package main

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs an SDK tracer provider that prints every finished
// span to w as JSON: the transfer spans and the HTTP client spans of the
// API calls made under them. When disabled the global no-op provider stays.
// stop shuts the provider down and restores the previous global one.
func setupTracing(enabled bool, w io.Writer) (stop func(), err error) {
	if !enabled {
		return func() {}, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "saved-transfer"),
			attribute.String("service.version", version),
			attribute.String("run.id", runID),
		)),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	return func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	}, nil
}
