package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Config holds metrics configuration.
type Config struct {
	EnableBackendLabel bool
}

// Metrics holds all application metrics.
type Metrics struct {
	config                      Config
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDuration         *prometheus.HistogramVec
	httpRequestBytes            *prometheus.CounterVec
	storageOperationsTotal      *prometheus.CounterVec
	storageOperationDuration    *prometheus.HistogramVec
	storageOperationErrors      *prometheus.CounterVec
	chunkOperationsTotal        *prometheus.CounterVec
	chunkOperationDuration      *prometheus.HistogramVec
	chunkOperationErrors        *prometheus.CounterVec
	chunkBytesTotal             *prometheus.CounterVec
	chunksReusedTotal           prometheus.Counter
	sequencerPromotionsTotal    prometheus.Counter
	bufferPoolHits              *prometheus.CounterVec
	bufferPoolMisses            *prometheus.CounterVec
	activeConnections           prometheus.Gauge
	goroutines                  prometheus.Gauge
	memoryAllocBytes            prometheus.Gauge
	memorySysBytes              prometheus.Gauge
	hardwareAccelerationEnabled *prometheus.GaugeVec
}

// NewMetrics creates a new metrics instance with default configuration.
func NewMetrics() *Metrics {
	return NewMetricsWithConfig(Config{EnableBackendLabel: true})
}

// NewMetricsWithConfig creates a new metrics instance with the provided configuration.
func NewMetricsWithConfig(cfg Config) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry creates a new metrics instance with a custom registry.
// This is useful for testing to avoid metric registration conflicts.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg, Config{EnableBackendLabel: true})
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer, cfg Config) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config: cfg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served by the debug/health endpoint",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		httpRequestBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_request_bytes_total",
				Help: "Total bytes transferred in HTTP requests",
			},
			[]string{"method", "path"},
		),
		storageOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operations_total",
				Help: "Total number of chunk storage operations",
			},
			[]string{"operation", "backend"},
		),
		storageOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Chunk storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		storageOperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operation_errors_total",
				Help: "Total number of chunk storage operation errors",
			},
			[]string{"operation", "backend", "error_type"},
		),
		chunkOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_operations_total",
				Help: "Total number of chunk encode/decode operations",
			},
			[]string{"operation"}, // "encode" or "decode"
		),
		chunkOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_operation_duration_seconds",
				Help:    "Chunk encode/decode operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		chunkOperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_operation_errors_total",
				Help: "Total number of chunk encode/decode errors",
			},
			[]string{"operation", "error_type"},
		),
		chunkBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_bytes_total",
				Help: "Total plaintext bytes processed by chunk operations",
			},
			[]string{"operation"},
		),
		chunksReusedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chunks_reused_total",
				Help: "Total number of chunks whose pre-close content matched their pre-hash and were reused without re-encoding",
			},
		),
		sequencerPromotionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sequencer_promotions_total",
				Help: "Total number of in-memory write buffers promoted to a memory-mapped file",
			},
		),
		bufferPoolHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_hits_total",
				Help: "Total number of buffer pool hits",
			},
			[]string{"size_class"},
		),
		bufferPoolMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_misses_total",
				Help: "Total number of buffer pool misses",
			},
			[]string{"size_class"},
		),
		activeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_connections",
				Help: "Number of active HTTP connections",
			},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
		hardwareAccelerationEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled)",
			},
			[]string{"type"},
		),
	}
}

// SetHardwareAccelerationStatus sets the hardware acceleration status metric.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelerationEnabled.WithLabelValues(accelType).Set(val)
}

// GetHardwareAccelerationEnabledMetric returns the hardware acceleration enabled metric (for testing).
func (m *Metrics) GetHardwareAccelerationEnabledMetric() *prometheus.GaugeVec {
	return m.hardwareAccelerationEnabled
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, bytes int64) {
	label := sanitizePathLabel(path)
	labels := prometheus.Labels{"method": method, "path": label, "status": http.StatusText(status)}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.httpRequestsTotal.With(labels).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.httpRequestsTotal.With(labels).Inc()
		}

		if observer, ok := m.httpRequestDuration.With(labels).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.httpRequestDuration.With(labels).Observe(duration.Seconds())
		}
	} else {
		m.httpRequestsTotal.With(labels).Inc()
		m.httpRequestDuration.With(labels).Observe(duration.Seconds())
	}

	m.httpRequestBytes.WithLabelValues(method, label).Add(float64(bytes))
}

// sanitizePathLabel reduces high-cardinality paths to stable labels.
// Examples:
// "/metrics" => "/metrics"
// "/debug/chunks/long/path" => "/debug/*"
func sanitizePathLabel(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) <= 1 {
		return "/" + segs[0]
	}
	return "/" + segs[0] + "/*"
}

func (m *Metrics) backendLabel(backend string) string {
	if !m.config.EnableBackendLabel {
		return "*"
	}
	return backend
}

// RecordStorageOperation records a chunk storage operation metric.
func (m *Metrics) RecordStorageOperation(ctx context.Context, operation, backend string, duration time.Duration) {
	backendLabel := m.backendLabel(backend)

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.storageOperationsTotal.WithLabelValues(operation, backendLabel).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.storageOperationsTotal.WithLabelValues(operation, backendLabel).Inc()
		}

		if observer, ok := m.storageOperationDuration.WithLabelValues(operation, backendLabel).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.storageOperationDuration.WithLabelValues(operation, backendLabel).Observe(duration.Seconds())
		}
	} else {
		m.storageOperationsTotal.WithLabelValues(operation, backendLabel).Inc()
		m.storageOperationDuration.WithLabelValues(operation, backendLabel).Observe(duration.Seconds())
	}
}

// RecordStorageError records a chunk storage operation error.
func (m *Metrics) RecordStorageError(ctx context.Context, operation, backend, errorType string) {
	backendLabel := m.backendLabel(backend)

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.storageOperationErrors.WithLabelValues(operation, backendLabel, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.storageOperationErrors.WithLabelValues(operation, backendLabel, errorType).Inc()
		}
	} else {
		m.storageOperationErrors.WithLabelValues(operation, backendLabel, errorType).Inc()
	}
}

// RecordChunkOperation records a chunk encode/decode operation metric.
func (m *Metrics) RecordChunkOperation(ctx context.Context, operation string, duration time.Duration, bytes int64) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.chunkOperationsTotal.WithLabelValues(operation).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.chunkOperationsTotal.WithLabelValues(operation).Inc()
		}

		if observer, ok := m.chunkOperationDuration.WithLabelValues(operation).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.chunkOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
		}
	} else {
		m.chunkOperationsTotal.WithLabelValues(operation).Inc()
		m.chunkOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	m.chunkBytesTotal.WithLabelValues(operation).Add(float64(bytes))
}

// RecordChunkError records a chunk encode/decode error.
func (m *Metrics) RecordChunkError(ctx context.Context, operation, errorType string) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.chunkOperationErrors.WithLabelValues(operation, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.chunkOperationErrors.WithLabelValues(operation, errorType).Inc()
		}
	} else {
		m.chunkOperationErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordChunkReused records that an unchanged chunk was kept across a
// random-access rewrite instead of being re-encoded.
func (m *Metrics) RecordChunkReused() {
	m.chunksReusedTotal.Inc()
}

// RecordSequencerPromotion records a write buffer's promotion from an
// in-memory vector to a memory-mapped file.
func (m *Metrics) RecordSequencerPromotion() {
	m.sequencerPromotionsTotal.Inc()
}

// RecordBufferPoolHit records a buffer pool hit.
func (m *Metrics) RecordBufferPoolHit(sizeClass string) {
	m.bufferPoolHits.WithLabelValues(sizeClass).Inc()
}

// RecordBufferPoolMiss records a buffer pool miss.
func (m *Metrics) RecordBufferPoolMiss(sizeClass string) {
	m.bufferPoolMisses.WithLabelValues(sizeClass).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// IncrementActiveConnections increments the active connections counter.
func (m *Metrics) IncrementActiveConnections() {
	m.activeConnections.Inc()
}

// DecrementActiveConnections decrements the active connections counter.
func (m *Metrics) DecrementActiveConnections() {
	m.activeConnections.Dec()
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// getExemplar extracts trace ID from context and returns prometheus Labels for exemplar.
func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
