package trace

import (
	"sync/atomic"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // operation started
	KindSpanEnd                   // operation finished
	KindPoint                     // reveal/conceal of one entity
	KindFailure                   // operation failed; kept at LevelError
	KindHeartbeat                 // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindFailure:
		return "failure"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope says which layer of a session produced the event.
// Lower values are coarser.
type Scope uint8

const (
	ScopeSession  Scope = iota + 1 // open, edit, reanalyze, clear
	ScopeDispatch                  // editor transactions
	ScopeRender                    // view projection and class toggling
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeDispatch:
		return "dispatch"
	case ScopeRender:
		return "render"
	default:
		return "unknown"
	}
}

// Counts are the sizes an operation reports. Zero fields are not printed.
type Counts struct {
	Records  int `json:"records,omitempty"`  // action records indexed
	Effects  int `json:"effects,omitempty"`  // effects in a transaction
	Changes  int `json:"changes,omitempty"`  // text changes in an edit
	Lines    int `json:"lines,omitempty"`    // rendered lines
	Sessions int `json:"sessions,omitempty"` // open sessions, on heartbeats
}

func (c Counts) zero() bool {
	return c == Counts{}
}

// Event is one trace record.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	SpanID  uint64
	Parent  uint64
	Session string        // document session, empty outside one
	Name    string        // e.g. "open", "facts", "render", "show"
	Ref     string        // entity of a reveal, "loan:bw0"
	Counts  Counts        // sizes reported by the operation
	Elapsed time.Duration // set on span ends
	Err     string        // set on failures
}

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

func nextSpanID() uint64 { return spanCounter.Add(1) }
