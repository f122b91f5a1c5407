package storage

import (
	"context"
	"time"

	"github.com/kenchrcum/selfencrypt/internal/metrics"
	"github.com/kenchrcum/selfencrypt/internal/selfenc"
)

// Instrumented wraps a Storage collaborator with Prometheus metrics,
// recording per-operation latency and counting errors by backend name.
type Instrumented struct {
	backend string
	inner   selfenc.Storage
	metrics *metrics.Metrics
}

// Instrument wraps inner so every Get/Put/Delete call records duration and
// error metrics under the given backend label ("memory", "disk", "s3", "redis").
func Instrument(backend string, inner selfenc.Storage, m *metrics.Metrics) *Instrumented {
	return &Instrumented{backend: backend, inner: inner, metrics: m}
}

func (i *Instrumented) Get(ctx context.Context, name []byte) ([]byte, error) {
	start := time.Now()
	data, err := i.inner.Get(ctx, name)
	i.metrics.RecordStorageOperation(ctx, "get", i.backend, time.Since(start))
	if err != nil {
		i.metrics.RecordStorageError(ctx, "get", i.backend, errorType(err))
	}
	return data, err
}

func (i *Instrumented) Put(ctx context.Context, name []byte, data []byte) error {
	start := time.Now()
	err := i.inner.Put(ctx, name, data)
	i.metrics.RecordStorageOperation(ctx, "put", i.backend, time.Since(start))
	if err != nil {
		i.metrics.RecordStorageError(ctx, "put", i.backend, errorType(err))
	}
	return err
}

func (i *Instrumented) Delete(ctx context.Context, name []byte) error {
	start := time.Now()
	err := i.inner.Delete(ctx, name)
	i.metrics.RecordStorageOperation(ctx, "delete", i.backend, time.Since(start))
	if err != nil {
		i.metrics.RecordStorageError(ctx, "delete", i.backend, errorType(err))
	}
	return err
}

// errorType classifies an error for low-cardinality metric labels without
// leaking dynamic content (chunk names, paths) into label values.
func errorType(err error) string {
	if err == nil {
		return ""
	}
	return "error"
}
