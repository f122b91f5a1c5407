// Package tracing wires up an OpenTelemetry TracerProvider for the
// selfencrypt binary. Spans are exported as newline-delimited JSON to a
// caller-chosen writer (discarded by default, stdout on request); there is
// no remote collector because nothing downstream of this
// process currently consumes spans. It exists so RecordStorageOperation and
// RecordChunkOperation exemplars (see internal/metrics) have a real trace ID
// to attach to, instead of always falling back to un-exemplared samples.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls how spans are exported.
type Config struct {
	// ServiceName is attached to every span as a resource attribute.
	ServiceName string
	// Writer receives the newline-delimited JSON span export. Defaults to
	// io.Discard so tracing can be wired unconditionally without spamming
	// stdout unless a caller asks to see it.
	Writer io.Writer
}

// Init installs a global TracerProvider and returns a shutdown func that
// flushes and releases its exporter. Callers should defer shutdown(ctx).
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	writer := cfg.Writer
	if writer == nil {
		writer = io.Discard
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(writer),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the globally installed provider.
// Safe to call before Init; it then yields a no-op tracer.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// InitFromEnv calls Init with stdout as the writer when SELFENC_TRACE_STDOUT
// is set to any non-empty value, otherwise discards spans while still installing
// a real TracerProvider so span contexts (and their trace IDs) propagate
// into metrics exemplars.
func InitFromEnv(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	writer := io.Discard
	if os.Getenv("SELFENC_TRACE_STDOUT") != "" {
		writer = os.Stdout
	}
	return Init(ctx, Config{ServiceName: serviceName, Writer: writer})
}
