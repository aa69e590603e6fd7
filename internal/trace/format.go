package trace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output path
	FormatText                 // one line per event for people
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
	}
}

func formatFor(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

// AppendEvent appends the encoding of ev to dst, newline included.
func AppendEvent(dst []byte, ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendNDJSON(dst, ev)
	}
	return appendText(dst, ev)
}

type jsonEvent struct {
	Time      string  `json:"time"`
	Seq       uint64  `json:"seq"`
	Kind      string  `json:"kind"`
	Scope     string  `json:"scope"`
	SpanID    uint64  `json:"span_id,omitempty"`
	Parent    uint64  `json:"parent_id,omitempty"`
	Session   string  `json:"session,omitempty"`
	Name      string  `json:"name"`
	Ref       string  `json:"ref,omitempty"`
	Counts    *Counts `json:"counts,omitempty"`
	ElapsedUS int64   `json:"elapsed_us,omitempty"`
	Err       string  `json:"error,omitempty"`
}

func appendNDJSON(dst []byte, ev *Event) []byte {
	je := jsonEvent{
		Time:      ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		SpanID:    ev.SpanID,
		Parent:    ev.Parent,
		Session:   ev.Session,
		Name:      ev.Name,
		Ref:       ev.Ref,
		ElapsedUS: ev.Elapsed.Microseconds(),
		Err:       ev.Err,
	}
	if !ev.Counts.zero() {
		c := ev.Counts
		je.Counts = &c
	}
	data, _ := json.Marshal(je)
	dst = append(dst, data...)
	return append(dst, '\n')
}

// appendText writes
//
//	#seq  scope    [session] → name ref {counts} 1.2ms: error
func appendText(dst []byte, ev *Event) []byte {
	dst = fmt.Appendf(dst, "#%-5d %-8s ", ev.Seq, ev.Scope)
	if ev.Session != "" {
		dst = append(dst, '[')
		dst = append(dst, shortSession(ev.Session)...)
		dst = append(dst, "] "...)
	}
	if ev.Parent > 0 {
		dst = append(dst, "  "...)
	}
	switch ev.Kind {
	case KindSpanBegin:
		dst = append(dst, "→ "...)
	case KindSpanEnd:
		dst = append(dst, "← "...)
	case KindPoint:
		dst = append(dst, "• "...)
	case KindFailure:
		dst = append(dst, "✗ "...)
	case KindHeartbeat:
		dst = append(dst, "♡ "...)
	}
	dst = append(dst, ev.Name...)
	if ev.Ref != "" {
		dst = append(dst, ' ')
		dst = append(dst, ev.Ref...)
	}
	dst = appendCounts(dst, ev)
	if ev.Kind == KindSpanEnd {
		dst = append(dst, ' ')
		dst = append(dst, ev.Elapsed.Round(time.Microsecond).String()...)
	}
	if ev.Err != "" {
		dst = append(dst, ": "...)
		dst = append(dst, ev.Err...)
	}
	return append(dst, '\n')
}

func appendCounts(dst []byte, ev *Event) []byte {
	c := ev.Counts
	fields := []struct {
		name string
		n    int
		show bool
	}{
		{"records", c.Records, c.Records > 0},
		{"effects", c.Effects, c.Effects > 0},
		{"changes", c.Changes, c.Changes > 0},
		{"lines", c.Lines, c.Lines > 0},
		{"sessions", c.Sessions, c.Sessions > 0 || ev.Kind == KindHeartbeat},
	}
	open := false
	for _, f := range fields {
		if !f.show {
			continue
		}
		if open {
			dst = append(dst, ", "...)
		} else {
			dst = append(dst, " {"...)
			open = true
		}
		dst = append(dst, f.name...)
		dst = append(dst, '=')
		dst = strconv.AppendInt(dst, int64(f.n), 10)
	}
	if open {
		dst = append(dst, '}')
	}
	return dst
}

// shortSession keeps the first block of a uuid.
func shortSession(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
