package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Implementations filter by their Level
// and must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	// Flush writes buffered events out.
	Flush() error
	// Close flushes and releases the output.
	Close() error
	Level() Level
}

type nop struct{}

func (nop) Emit(*Event)  {}
func (nop) Flush() error { return nil }
func (nop) Close() error { return nil }
func (nop) Level() Level { return LevelOff }

// Nop discards everything.
var Nop Tracer = nop{}

// StorageMode determines where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory for dumps
	ModeBoth                          // both of the above
)

// String returns the string representation of StorageMode.
func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to StorageMode.
func ParseMode(s string) (StorageMode, error) {
	switch strings.ToLower(s) {
	case "", "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	default:
		return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
	}
}

// Config holds tracer configuration.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks by OutputPath
	Output     io.Writer // overrides OutputPath
	OutputPath string    // "-" or empty for stderr
	RingSize   int       // default 4096
}

// New builds the tracer described by cfg. With ModeBoth the result is a
// Tee whose Ring method returns the ring half.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatFor(cfg.OutputPath)
	}
	stream := NewStreamTracer(w, cfg.Level, format)
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewTee(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(cfg Config) (io.WriteCloser, error) {
	if cfg.Output != nil {
		if wc, ok := cfg.Output.(io.WriteCloser); ok {
			return wc, nil
		}
		return nopCloser{cfg.Output}, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// Tee fans events out to several tracers.
type Tee struct {
	level   Level
	tracers []Tracer
}

// NewTee returns a tracer emitting to every t.
func NewTee(level Level, tracers ...Tracer) *Tee {
	return &Tee{level: level, tracers: tracers}
}

// Emit hands each tracer its own copy of ev.
func (t *Tee) Emit(ev *Event) {
	if !t.level.Accepts(ev) {
		return
	}
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

// Flush flushes every tracer.
func (t *Tee) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every tracer.
func (t *Tee) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

// Level returns the configured level.
func (t *Tee) Level() Level { return t.level }

// Ring returns the first ring tracer of the tee.
func (t *Tee) Ring() *RingTracer {
	for _, tr := range t.tracers {
		if r, ok := tr.(*RingTracer); ok {
			return r
		}
	}
	return nil
}

// RingOf returns the ring tracer inside t, if any.
func RingOf(t Tracer) *RingTracer {
	switch v := t.(type) {
	case *RingTracer:
		return v
	case *Tee:
		return v.Ring()
	}
	return nil
}
