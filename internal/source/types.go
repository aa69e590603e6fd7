package source

type (
	// TextFlags encodes metadata about how a document was loaded.
	TextFlags uint8 // метаданные
)

const (
	// TextVirtual indicates the text was created from memory (test, stdin, rpc).
	TextVirtual TextFlags = 1 << iota // не с диска
	TextHadBOM
	TextNormalizedCRLF
)

// LineCol represents a human-readable position in a document.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based, in characters
}

// LineInfo describes one document line in character offsets.
// To points at the line break (or the end of the document), not past it.
type LineInfo struct {
	Number int
	From   uint32
	To     uint32
	Text   string
}

// Len returns the number of characters on the line, excluding the break.
func (l LineInfo) Len() uint32 {
	return l.To - l.From
}
