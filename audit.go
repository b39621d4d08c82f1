package authgate

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is one security-relevant occurrence: a login attempt, a token
// rotation, a throttle trip. Events are emitted asynchronously; sinks must
// never assume ordering guarantees beyond per-dispatcher FIFO.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine. Write must be
// safe for concurrent use only if the sink is shared across engines.
type AuditSink interface {
	Write(event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Write(AuditEvent) {}

// ChannelSink forwards events to a channel, dropping when it is full.
// Useful for tests and for bridging to an external pipeline.
type ChannelSink struct {
	C chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Write(event AuditEvent) {
	select {
	case s.C <- event:
	default:
	}
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Write(event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}
