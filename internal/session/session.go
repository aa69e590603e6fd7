// Package session drives one document through indexing, decoration,
// rendering and visibility toggling.
//
// A Session is not safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"aquascope/internal/editor"
	"aquascope/internal/facts"
	"aquascope/internal/observ"
	"aquascope/internal/render"
	"aquascope/internal/source"
	"aquascope/internal/tag"
	"aquascope/internal/trace"
	"aquascope/internal/view"
	"aquascope/internal/visibility"
)

// Options configure a session. The zero value uses random tags of the
// default length and the default class names.
type Options struct {
	Classes   render.Classes
	Revealed  string
	Tags      *tag.Generator
	TagLength int
	Timer     *observ.Timer
}

// Session is one open document.
type Session struct {
	id       string
	renderer *render.Renderer
	tags     *tag.Session
	timer    *observ.Timer

	state   *editor.State
	facts   *facts.AnalysisFacts
	records []facts.ActionFacts
	tree    *view.Tree
	ctl     *visibility.Controller
}

// Open indexes out, decorates text with the result and renders it.
func Open(ctx context.Context, text *source.Text, out *facts.AnalysisOutput, opts Options) (*Session, error) {
	id := uuid.NewString()
	ctx, span := trace.Start(trace.WithSession(ctx, id), trace.ScopeSession, "open")

	s := &Session{
		id:       id,
		renderer: render.New(opts.Classes),
		tags:     tag.NewSession(opts.Tags, opts.TagLength),
		timer:    opts.Timer,
	}
	if s.timer == nil {
		s.timer = observ.NewTimer()
	}
	s.state = editor.NewState(text, s.renderer.Fields()...)
	s.ctl = visibility.NewController(nil, nil).WithRevealedClass(opts.Revealed)

	if out == nil {
		s.rerender(ctx)
		span.Lines(len(s.tree.Lines)).End()
		return s, nil
	}
	if err := s.Reanalyze(ctx, out); err != nil {
		span.Fail(err)
		return nil, err
	}
	span.Records(len(s.records)).End()
	return s, nil
}

// ID identifies the session.
func (s *Session) ID() string { return s.id }

// State returns the current editor state.
func (s *Session) State() *editor.State { return s.state }

// Doc returns the current document.
func (s *Session) Doc() *source.Text { return s.state.Doc() }

// Facts returns the index of the latest analysis, nil before the first.
func (s *Session) Facts() *facts.AnalysisFacts { return s.facts }

// Records returns the records of the latest analysis.
func (s *Session) Records() []facts.ActionFacts { return s.records }

// Tree returns the latest rendering.
func (s *Session) Tree() *view.Tree { return s.tree }

// Renderer returns the renderer owning the session's effects and fields.
func (s *Session) Renderer() *render.Renderer { return s.renderer }

// Visibility returns the current visibility state.
func (s *Session) Visibility() visibility.State { return s.ctl.State() }

// Timer returns the timer collecting step durations.
func (s *Session) Timer() *observ.Timer { return s.timer }

// Reanalyze replaces all fact decorations with a fresh analysis result.
// Visibility of keys present in both analyses carries over.
func (s *Session) Reanalyze(ctx context.Context, out *facts.AnalysisOutput) error {
	ctx, span := s.start(ctx, trace.ScopeSession, "reanalyze")

	idx := s.timer.Begin("index")
	af, records, err := facts.Generate(out, s.tags)
	if err != nil {
		s.timer.End(idx, "failed")
		err = fmt.Errorf("index facts: %w", err)
		span.Fail(err)
		return err
	}
	s.timer.End(idx, strconv.Itoa(len(records))+" records")
	span.Records(len(records))

	if err := s.dispatch(ctx, "facts", editor.Transaction{
		Effects: []editor.Effect{s.renderer.SetFacts(records)},
	}, af); err != nil {
		span.Fail(err)
		return err
	}
	s.facts, s.records = af, records
	span.End()
	return nil
}

// Edit applies changes given in current document coordinates. Decorations
// follow the text they cover.
func (s *Session) Edit(ctx context.Context, changes ...source.Change) error {
	ctx, span := s.start(ctx, trace.ScopeSession, "edit")
	span.Changes(len(changes))

	cs, err := source.NewChangeSet(s.Doc().Len(), changes...)
	if err == nil {
		err = s.dispatch(ctx, "edit", editor.Transaction{Changes: cs}, nil)
	}
	span.Fail(err)
	return err
}

// Clear removes every fact decoration.
func (s *Session) Clear(ctx context.Context) error {
	ctx, span := s.start(ctx, trace.ScopeSession, "clear")
	err := s.dispatch(ctx, "clear", editor.Transaction{
		Effects: []editor.Effect{s.renderer.ClearFacts()},
	}, nil)
	span.Fail(err)
	return err
}

// HideLine marks a 1-based line as hidden.
func (s *Session) HideLine(ctx context.Context, line int) error {
	ctx, span := s.start(ctx, trace.ScopeSession, "hide-line")
	err := s.dispatch(ctx, "hide-line", editor.Transaction{
		Effects: []editor.Effect{s.renderer.Hide(line)},
	}, nil)
	span.Fail(err)
	return err
}

// Show reveals an entity. A nil key is a no-op.
func (s *Session) Show(ctx context.Context, ns facts.Namespace, key *string, names ...string) {
	s.toggle(ctx, "show", ns, key, func() { s.ctl.Show(ns, key, names...) })
}

// Hide conceals an entity. A nil key is a no-op.
func (s *Session) Hide(ctx context.Context, ns facts.Namespace, key *string, names ...string) {
	s.toggle(ctx, "hide", ns, key, func() { s.ctl.Hide(ns, key, names...) })
}

func (s *Session) toggle(ctx context.Context, name string, ns facts.Namespace, key *string, fn func()) {
	ref := "<nil>"
	if key != nil {
		ref = ns.String() + ":" + *key
	}
	trace.Reveal(trace.WithSession(ctx, s.id), name, ref)
	fn()
}

// Markup writes the current rendering as HTML.
func (s *Session) Markup(w io.Writer) error {
	return s.tree.Markup(w)
}

// ANSI renders the current tree for a terminal.
func (s *Session) ANSI(th view.Theme) string {
	return s.tree.ANSI(th)
}

// start opens a span attributed to this session.
func (s *Session) start(ctx context.Context, scope trace.Scope, name string) (context.Context, *trace.Span) {
	return trace.Start(trace.WithSession(ctx, s.id), scope, name)
}

// dispatch applies tr and re-renders. af replaces the index on success.
// On failure the session is left as it was.
func (s *Session) dispatch(ctx context.Context, name string, tr editor.Transaction, af *facts.AnalysisFacts) error {
	ctx, span := s.start(ctx, trace.ScopeDispatch, name)
	span.Effects(len(tr.Effects)).Changes(len(tr.Changes.Changes()))
	idx := s.timer.Begin(name)
	next, err := s.state.Dispatch(tr)
	if err != nil {
		s.timer.End(idx, "failed")
		err = fmt.Errorf("%s: %w", name, err)
		span.Fail(err)
		return err
	}
	s.timer.End(idx, "")
	span.End()

	s.state = next
	if af != nil {
		s.facts = af
	}
	s.rerender(ctx)
	return nil
}

func (s *Session) rerender(ctx context.Context) {
	_, span := s.start(ctx, trace.ScopeRender, "render")
	idx := s.timer.Begin("render")
	s.tree = view.Render(s.state)
	if s.facts != nil {
		s.tree.Session = s.facts.Session
	}
	s.ctl.Rebind(s.facts, s.tree)
	s.timer.End(idx, "")
	span.Lines(len(s.tree.Lines)).End()
}
