package trace

import (
	"context"
	"time"
)

// Span is one traced operation. A nil or disabled span ignores every call.
type Span struct {
	tracer  Tracer
	ev      Event
	started time.Time
}

// Start begins a span under the span carried by ctx and returns a context
// carrying the new one. Spans below the tracer's level still report
// failures but do not become parents.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	f := frameOf(ctx)
	level := f.tracer.Level()
	if level == LevelOff {
		return ctx, &Span{}
	}
	s := &Span{
		tracer:  f.tracer,
		started: time.Now(),
		ev: Event{
			Scope:   scope,
			SpanID:  nextSpanID(),
			Parent:  f.span,
			Session: f.session,
			Name:    name,
		},
	}
	begin := s.ev
	begin.Kind, begin.Time = KindSpanBegin, s.started
	s.tracer.Emit(&begin)

	if !level.ShouldEmit(scope) {
		return ctx, s
	}
	f.span = s.ev.SpanID
	return withFrame(ctx, f), s
}

// ID returns the span id, zero for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.ev.SpanID
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil
}

// Records sets the number of indexed records.
func (s *Span) Records(n int) *Span {
	if s.live() {
		s.ev.Counts.Records = n
	}
	return s
}

// Effects sets the number of transaction effects.
func (s *Span) Effects(n int) *Span {
	if s.live() {
		s.ev.Counts.Effects = n
	}
	return s
}

// Changes sets the number of text changes.
func (s *Span) Changes(n int) *Span {
	if s.live() {
		s.ev.Counts.Changes = n
	}
	return s
}

// Lines sets the number of rendered lines.
func (s *Span) Lines(n int) *Span {
	if s.live() {
		s.ev.Counts.Lines = n
	}
	return s
}

// End emits the end event and returns the span's duration.
func (s *Span) End() time.Duration {
	if !s.live() {
		return 0
	}
	return s.finish("")
}

// Fail ends the span with err and emits a failure event, which ring tracers
// keep even at LevelError. A nil err is End.
func (s *Span) Fail(err error) time.Duration {
	if !s.live() {
		return 0
	}
	if err == nil {
		return s.finish("")
	}
	return s.finish(err.Error())
}

func (s *Span) finish(failure string) time.Duration {
	now := time.Now()
	end := s.ev
	end.Kind, end.Time = KindSpanEnd, now
	end.Elapsed = now.Sub(s.started)
	end.Err = failure
	s.tracer.Emit(&end)
	if failure != "" {
		fail := end
		fail.Kind = KindFailure
		s.tracer.Emit(&fail)
	}
	s.tracer = nil
	return end.Elapsed
}

// Reveal records a visibility change of one entity under ctx's span.
func Reveal(ctx context.Context, op, ref string) {
	f := frameOf(ctx)
	if !f.tracer.Level().ShouldEmit(ScopeRender) {
		return
	}
	f.tracer.Emit(&Event{
		Time:    time.Now(),
		Kind:    KindPoint,
		Scope:   ScopeRender,
		Parent:  f.span,
		Session: f.session,
		Name:    op,
		Ref:     ref,
	})
}
