// Package observ collects wall-clock timings of session steps.
//
// A session repeats the same steps (dispatch, render) for as long as it is
// open, so a Timer keeps one aggregate per step name rather than a growing
// list of runs.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase aggregates every run of one named step.
type Phase struct {
	Name  string
	Runs  int
	Fails int
	Total time.Duration
	Max   time.Duration
	Last  time.Duration
	Note  string // note of the latest run
}

// Mark is a started run, returned by Begin and consumed by End.
type Mark struct {
	slot  int
	start time.Time
}

// Timer aggregates step durations in order of first appearance.
// A Timer is not safe for concurrent use; the zero Mark of a nil Timer
// is ignored by End.
type Timer struct {
	phases []Phase
	slots  map[string]int
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer {
	return &Timer{slots: make(map[string]int)}
}

// Begin starts a run of the step name.
func (t *Timer) Begin(name string) Mark {
	if t == nil {
		return Mark{slot: -1}
	}
	slot, ok := t.slots[name]
	if !ok {
		slot = len(t.phases)
		t.slots[name] = slot
		t.phases = append(t.phases, Phase{Name: name})
	}
	return Mark{slot: slot, start: time.Now()}
}

// End finishes a run. A note of "failed" counts the run as a failure.
func (t *Timer) End(m Mark, note string) {
	if t == nil || m.slot < 0 || m.slot >= len(t.phases) || m.start.IsZero() {
		return
	}
	d := time.Since(m.start)
	p := &t.phases[m.slot]
	p.Runs++
	p.Total += d
	p.Last = d
	p.Max = max(p.Max, d)
	p.Note = note
	if note == "failed" {
		p.Fails++
	}
}

// PhaseReport is the serialisable form of a Phase.
type PhaseReport struct {
	Name    string  `json:"name"`
	Runs    int     `json:"runs"`
	Fails   int     `json:"fails,omitempty"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
	Note    string  `json:"note,omitempty"`
}

// Report lists the phases and their summed duration.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns the aggregates in order of first appearance.
func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	rep := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Total
		rep.Phases[i] = PhaseReport{
			Name:    p.Name,
			Runs:    p.Runs,
			Fails:   p.Fails,
			TotalMS: millis(p.Total),
			MaxMS:   millis(p.Max),
			Note:    p.Note,
		}
	}
	rep.TotalMS = millis(total)
	return rep
}

// Summary renders the report as a table for the terminal.
func (t *Timer) Summary() string {
	rep := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&sb, "  %-12s x%-4d %8.2f ms  max %7.2f ms", p.Name, p.Runs, p.TotalMS, p.MaxMS)
		if p.Fails > 0 {
			fmt.Fprintf(&sb, "  %d failed", p.Fails)
		}
		if p.Note != "" && p.Note != "failed" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-12s       %8.2f ms\n", "total", rep.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
