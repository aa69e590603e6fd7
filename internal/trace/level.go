package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // failures only
	LevelPhase               // + session operations
	LevelDetail              // + dispatches
	LevelDebug               // + rendering and reveals
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
	}
}

// ShouldEmit reports whether spans of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeSession
	case LevelDetail:
		return scope <= ScopeDispatch
	case LevelDebug:
		return true
	}
	return false
}

// Accepts reports whether ev is recorded at this level. Failures and
// heartbeats pass at every level above off.
func (l Level) Accepts(ev *Event) bool {
	if l == LevelOff {
		return false
	}
	if ev.Kind == KindFailure || ev.Kind == KindHeartbeat {
		return true
	}
	return l.ShouldEmit(ev.Scope)
}
