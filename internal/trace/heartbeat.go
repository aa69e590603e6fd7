package trace

import (
	"sync"
	"time"
)

// Heartbeat periodically reports how many sessions a long-running server
// holds, so a quiet trace still shows the process is alive.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	sessions func() int
	stop     chan struct{}
	once     sync.Once
	done     sync.WaitGroup
}

// StartHeartbeat emits a heartbeat every interval until Stop. sessions, if
// not nil, is sampled for the open session count. It returns nil when the
// tracer is off or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration, sessions func() int) *Heartbeat {
	if tracer == nil || tracer.Level() == LevelOff || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		sessions: sessions,
		stop:     make(chan struct{}),
	}
	h.done.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.done.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			h.tracer.Emit(h.beat(now))
		case <-h.stop:
			return
		}
	}
}

func (h *Heartbeat) beat(now time.Time) *Event {
	ev := &Event{Time: now, Kind: KindHeartbeat, Scope: ScopeSession, Name: "heartbeat"}
	if h.sessions != nil {
		ev.Counts.Sessions = h.sessions()
	}
	return ev
}

// Stop ends the heartbeat and waits for its goroutine. Safe on nil and
// safe to call twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	h.done.Wait()
}
