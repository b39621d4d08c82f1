package authgate

import (
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples audit emission from the auth hot path. Events
// are queued on a buffered channel and delivered to the sink by a single
// goroutine, so sink latency never blocks a login.
type auditDispatcher struct {
	sink       AuditSink
	ch         chan AuditEvent
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	dropIfFull bool
	closed     atomic.Bool
	closeOnce  sync.Once
}

func newAuditDispatcher(sink AuditSink, buffer int, dropIfFull bool) *auditDispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	d := &auditDispatcher{
		sink:       sink,
		ch:         make(chan AuditEvent, buffer),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.ch:
			d.sink.Write(ev)
		case <-d.done:
			// Drain whatever was queued before Close.
			for {
				select {
				case ev := <-d.ch:
					d.sink.Write(ev)
				default:
					return
				}
			}
		}
	}
}

// emit queues an event. With dropIfFull set it never blocks; otherwise it
// waits for buffer space, which ties auth latency to the sink.
func (d *auditDispatcher) emit(ev AuditEvent) {
	if d.closed.Load() {
		d.dropped.Add(1)
		return
	}
	if d.dropIfFull {
		select {
		case d.ch <- ev:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.ch <- ev:
	case <-d.done:
		d.dropped.Add(1)
	}
}

// close stops the dispatcher after draining queued events.
func (d *auditDispatcher) close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// droppedCount reports events lost to a full buffer since start.
func (d *auditDispatcher) droppedCount() uint64 {
	return d.dropped.Load()
}
