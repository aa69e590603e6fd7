package trace

import "context"

// frame is what a context carries: the tracer, the enclosing span and the
// document session events are attributed to.
type frame struct {
	tracer  Tracer
	span    uint64
	session string
}

type frameKey struct{}

func frameOf(ctx context.Context) frame {
	if ctx == nil {
		return frame{tracer: Nop}
	}
	if f, ok := ctx.Value(frameKey{}).(frame); ok {
		return f
	}
	return frame{tracer: Nop}
}

func withFrame(ctx context.Context, f frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return frameOf(ctx).tracer
}

// WithTracer attaches t to ctx. Spans started from the result have no parent.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	f := frameOf(ctx)
	f.tracer, f.span = t, 0
	return withFrame(ctx, f)
}

// WithSession attributes every event emitted under ctx to a document session.
func WithSession(ctx context.Context, id string) context.Context {
	f := frameOf(ctx)
	if f.session == id {
		return ctx
	}
	f.session = id
	return withFrame(ctx, f)
}
