package source

import (
	"errors"
	"fmt"
	"os"
)

// ErrLineOutOfRange is returned when a line number does not exist in the text.
var ErrLineOutOfRange = errors.New("line out of range")

// Text is an immutable document addressed by character offsets.
// Character offsets count Unicode scalar values, which is what the
// analysis engine reports in its char_start/char_end fields.
type Text struct {
	Path  string
	Flags TextFlags

	content string
	chars   uint32
	lineIdx []uint32 // символьные смещения всех '\n'
	byteIdx []uint32 // nil для ASCII; иначе байтовое смещение каждого символа + конец
}

// NewText builds a virtual document from content as is.
func NewText(content string) *Text {
	return newText("", content, TextVirtual)
}

func newText(path, content string, flags TextFlags) *Text {
	chars, lineIdx, byteIdx := indexText(content)
	return &Text{
		Path:    path,
		Flags:   flags,
		content: content,
		chars:   chars,
		lineIdx: lineIdx,
		byteIdx: byteIdx,
	}
}

// Load reads a document from disk, strips a UTF-8 BOM and normalizes CRLF.
func Load(path string) (*Text, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := TextFlags(0)
	if hadBOM {
		flags |= TextHadBOM
	}
	if hadCRLF {
		flags |= TextNormalizedCRLF
	}
	return newText(normalizePath(path), string(content), flags), nil
}

// String returns the whole document.
func (t *Text) String() string {
	return t.content
}

// Len returns the document length in characters.
func (t *Text) Len() uint32 {
	return t.chars
}

// LineCount returns the number of lines; an empty document has one line.
func (t *Text) LineCount() int {
	return len(t.lineIdx) + 1
}

// ByteOffset converts a character offset into a byte offset in String().
// Offsets past the end are clamped.
func (t *Text) ByteOffset(off uint32) int {
	if off > t.chars {
		off = t.chars
	}
	if t.byteIdx == nil {
		return int(off)
	}
	return int(t.byteIdx[off])
}

// Slice returns the text between two character offsets.
func (t *Text) Slice(from, to uint32) string {
	if to < from {
		from, to = to, from
	}
	return t.content[t.ByteOffset(from):t.ByteOffset(to)]
}

// Line returns the line with the given 1-based number.
func (t *Text) Line(n int) (LineInfo, error) {
	if n < 1 || n > t.LineCount() {
		return LineInfo{}, fmt.Errorf("line %d of %d: %w", n, t.LineCount(), ErrLineOutOfRange)
	}
	var from uint32
	if n > 1 {
		from = t.lineIdx[n-2] + 1
	}
	to := t.chars
	if n-1 < len(t.lineIdx) {
		to = t.lineIdx[n-1]
	}
	return LineInfo{Number: n, From: from, To: to, Text: t.Slice(from, to)}, nil
}

// LineAt returns the line containing the character offset. The offset of a
// line break belongs to the line it terminates.
func (t *Text) LineAt(off uint32) LineInfo {
	if off > t.chars {
		off = t.chars
	}
	lc := toLineCol(t.lineIdx, off)
	line, err := t.Line(int(lc.Line))
	if err != nil {
		// toLineCol всегда возвращает существующую строку
		panic(err)
	}
	return line
}

// Lines returns every line of the document in order.
func (t *Text) Lines() []LineInfo {
	out := make([]LineInfo, 0, t.LineCount())
	for n := 1; n <= t.LineCount(); n++ {
		line, err := t.Line(n)
		if err != nil {
			break
		}
		out = append(out, line)
	}
	return out
}

// Resolve converts a character offset into a line and column.
func (t *Text) Resolve(off uint32) LineCol {
	if off > t.chars {
		off = t.chars
	}
	return toLineCol(t.lineIdx, off)
}
