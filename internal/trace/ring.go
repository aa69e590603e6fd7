package trace

import (
	"io"
	"slices"
	"sync"
)

// RingTracer keeps the last events in memory so a failing session can be
// dumped after the fact.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	head   int
	full   bool
	level  Level
	failed []string // sessions with a failure, in order of first failure
}

// NewRingTracer keeps up to capacity events; capacity <= 0 means 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// Emit stores ev, overwriting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Accepts(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	stored.Seq = nextSeq()
	t.events[t.head] = stored
	t.head = (t.head + 1) % len(t.events)
	if t.head == 0 {
		t.full = true
	}
	if ev.Kind == KindFailure && !slices.Contains(t.failed, ev.Session) {
		t.failed = append(t.failed, ev.Session)
	}
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.full {
		return slices.Clone(t.events[:t.head])
	}
	return slices.Concat(t.events[t.head:], t.events[:t.head])
}

// Failed lists the sessions that reported a failure. Failures outside any
// session appear as "".
func (t *RingTracer) Failed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.failed)
}

// Dump writes every stored event.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	return t.dump(w, format, func(*Event) bool { return true })
}

// DumpSession writes the stored events of one session.
func (t *RingTracer) DumpSession(w io.Writer, format Format, session string) error {
	return t.dump(w, format, func(ev *Event) bool { return ev.Session == session })
}

func (t *RingTracer) dump(w io.Writer, format Format, keep func(*Event) bool) error {
	var buf []byte
	events := t.Snapshot()
	for i := range events {
		if !keep(&events[i]) {
			continue
		}
		buf = AppendEvent(buf[:0], &events[i], format)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op.
func (t *RingTracer) Close() error { return nil }

// Level returns the configured level.
func (t *RingTracer) Level() Level { return t.level }
