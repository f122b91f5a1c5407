package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizePathLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/", "/"},
		{"/metrics", "/metrics"},
		{"/health", "/health"},
		{"/debug/chunks", "/debug/*"},
		{"/debug/chunks/with/more/segments", "/debug/*"},
		{"/debug", "/debug"},
		{"/debug?query=param", "/debug"},
		{"", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := sanitizePathLabel(tt.path)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRecordHTTPRequest_Cardinality(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	// Record requests with high cardinality paths
	m.RecordHTTPRequest(context.Background(), "GET", "/debug/chunk1", http.StatusOK, time.Millisecond, 100)
	m.RecordHTTPRequest(context.Background(), "GET", "/debug/chunk2", http.StatusOK, time.Millisecond, 100)
	m.RecordHTTPRequest(context.Background(), "GET", "/healthz/live", http.StatusOK, time.Millisecond, 100)

	// Check that we have collapsed paths
	// We expect /debug/* and /healthz/*

	countDebug := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/debug/*", "OK"))
	assert.Equal(t, 2.0, countDebug)

	countHealthz := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/healthz/*", "OK"))
	assert.Equal(t, 1.0, countHealthz)
}

func TestRecordStorageOperation_DisableBackendLabel(t *testing.T) {
	// Create metrics with backend label disabled
	reg := prometheus.NewRegistry()
	cfg := Config{EnableBackendLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordStorageOperation(context.Background(), "put", "disk", time.Millisecond)
	m.RecordStorageOperation(context.Background(), "put", "redis", time.Millisecond)

	// Should align to backend="*"
	count := testutil.ToFloat64(m.storageOperationsTotal.WithLabelValues("put", "*"))
	assert.Equal(t, 2.0, count)
}

func TestRecordStorageError_DisableBackendLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{EnableBackendLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordStorageError(context.Background(), "get", "disk", "NotFound")
	m.RecordStorageError(context.Background(), "get", "redis", "NotFound")

	count := testutil.ToFloat64(m.storageOperationErrors.WithLabelValues("get", "*", "NotFound"))
	assert.Equal(t, 2.0, count)
}
