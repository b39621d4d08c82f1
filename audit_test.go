package authgate

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Write(AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
	seen atomic.Int64
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Write(AuditEvent) {
	<-s.gate
	s.seen.Add(1)
}

func TestDispatcherDeliversEvents(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(sink, 16, true)

	for i := 0; i < 10; i++ {
		d.emit(AuditEvent{EventType: "login_success"})
	}
	d.close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("delivered = %d, want 10", got)
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := newGateSink()
	d := newAuditDispatcher(sink, 8, true)

	for i := 0; i < 8; i++ {
		d.emit(AuditEvent{EventType: "logout"})
	}
	close(sink.gate)
	d.close()

	// Everything queued before close must reach the sink.
	if got := sink.seen.Load(); got < 7 {
		t.Fatalf("drained = %d, want at least the buffered events", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	d := newAuditDispatcher(sink, 1, true)

	for i := 0; i < 50; i++ {
		d.emit(AuditEvent{EventType: "login_failure"})
	}
	if d.droppedCount() == 0 {
		t.Fatal("expected drops with a blocked sink and buffer of 1")
	}
	close(sink.gate)
	d.close()
}

func TestDispatcherEmitAfterCloseDrops(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(sink, 4, true)
	d.close()

	d.emit(AuditEvent{EventType: "logout"})
	if d.droppedCount() != 1 {
		t.Fatalf("dropped = %d, want 1", d.droppedCount())
	}
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	d := newAuditDispatcher(NoOpSink{}, 4, true)
	done := make(chan struct{})
	go func() {
		d.close()
		d.close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close deadlocked")
	}
}
