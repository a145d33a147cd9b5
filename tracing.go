package main

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracerProvider builds the process tracer provider. With no exporter
// configured spans are still sampled for log correlation but not exported.
func newTracerProvider(exporter string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case "":
		return sdktrace.NewTracerProvider(), nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
}
