package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ryanuber/go-glob"

	"github.com/kenchrcum/selfencrypt/internal/config"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeEncrypt represents a session close that produced a DataMap.
	EventTypeEncrypt EventType = "encrypt"
	// EventTypeDecrypt represents a read that materialised chunks.
	EventTypeDecrypt EventType = "decrypt"
	// EventTypeDelete represents a chunk garbage-collection pass during close.
	EventTypeDelete EventType = "delete"
	// EventTypeAccess represents a general storage access operation.
	EventTypeAccess EventType = "access"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	Operation  string                 `json:"operation"`
	Name       string                 `json:"name,omitempty"`     // data map or chunk storage name
	ChunkCount int                    `json:"chunk_count,omitempty"`
	DataMapLen uint64                 `json:"data_map_len,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Duration   time.Duration          `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error
	
	// LogEncrypt logs a Close that produced a DataMap with chunkCount chunks.
	LogEncrypt(name string, chunkCount int, dataMapLen uint64, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogDecrypt logs a Read that materialised chunks.
	LogDecrypt(name string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogDelete logs removal of a superseded chunk during close.
	LogDelete(name string, success bool, err error)

	// LogAccess logs a general storage access operation.
	LogAccess(eventType, name, requestID string, success bool, err error, duration time.Duration)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger with redaction keys.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}
	
	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// NewLoggerFromConfig creates a new audit logger from configuration.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter
	
	if !cfg.Enabled {
		// If disabled, we still return a logger but maybe with a dummy writer or handle it upstream.
		// For now, create default writer if enabled is false but this function is called?
		// Or rely on caller.
	}

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &defaultWriter{}
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}
	
	// Wrap with batch sink if configured
	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		// Default values handled in NewBatchSink if 0
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}
	
	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	
	// Write to external writer if available
	if l.writer != nil {
		if err := l.writer.WriteEvent(event); err != nil {
			// Log error but don't fail
			fmt.Fprintf(os.Stderr, "audit: failed to write event: %v\n", err)
		}
	}
	
	// Store in memory buffer
	l.events = append(l.events, event)
	
	// Maintain max events limit
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	
	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// redactMetadata removes sensitive keys from metadata. Entries in
// redactKeys may be exact key names or glob patterns (e.g. "secret_*",
// "*_token"), matched against every metadata key.
func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactKeys) == 0 || len(metadata) == 0 {
		return metadata
	}

	matches := func(key string) bool {
		for _, pattern := range l.redactKeys {
			if glob.Glob(pattern, key) {
				return true
			}
		}
		return false
	}

	needsRedaction := false
	for k := range metadata {
		if matches(k) {
			needsRedaction = true
			break
		}
	}

	if !needsRedaction {
		return metadata
	}

	// Shallow copy
	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if matches(k) {
			clone[k] = "[REDACTED]"
		} else {
			clone[k] = v
		}
	}
	return clone
}

// LogEncrypt logs a Close that produced a DataMap.
func (l *auditLogger) LogEncrypt(name string, chunkCount int, dataMapLen uint64, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeEncrypt,
		Operation:  "encrypt",
		Name:       name,
		ChunkCount: chunkCount,
		DataMapLen: dataMapLen,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogDecrypt logs a Read that materialised chunks.
func (l *auditLogger) LogDecrypt(name string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeDecrypt,
		Operation:  "decrypt",
		Name:       name,
		ChunkCount: chunkCount,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogDelete logs removal of a superseded chunk during close.
func (l *auditLogger) LogDelete(name string, success bool, err error) {
	event := &AuditEvent{
		Timestamp: time.Now(),
		EventType: EventTypeDelete,
		Operation: "delete",
		Name:      name,
		Success:   success,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogAccess logs a general storage access operation.
func (l *auditLogger) LogAccess(eventType, name, requestID string, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp: time.Now(),
		EventType: EventType(eventType),
		Operation: eventType,
		Name:      name,
		RequestID: requestID,
		Success:   success,
		Duration:  duration,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	
	// Return a copy to prevent external modifications
	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	
	// One JSON line per event on stdout.
	fmt.Printf("%s\n", string(data))
	return nil
}
