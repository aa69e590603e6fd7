package source

import (
	"fmt"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
)

// normalizeCRLF заменяет все \r\n на \n, не трогая одиночные \r.
// Возвращает новый слайс и флаг: были ли замены.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false

	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}

	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}

	return content, false
}

// indexText walks the content once and returns the character count, the
// character offsets of every '\n', and (only for non-ASCII content) the byte
// offset of every character plus a trailing entry for the end of the text.
func indexText(content string) (chars uint32, lineIdx, byteIdx []uint32) {
	ascii := true
	for i := 0; i < len(content); i++ {
		if content[i] >= 0x80 {
			ascii = false
			break
		}
	}

	lineIdx = make([]uint32, 0, 16)
	if ascii {
		for i := 0; i < len(content); i++ {
			if content[i] == '\n' {
				lineIdx = append(lineIdx, mustUint32(i))
			}
		}
		return mustUint32(len(content)), lineIdx, nil
	}

	byteIdx = make([]uint32, 0, len(content)+1)
	var n uint32
	for i, r := range content {
		byteIdx = append(byteIdx, mustUint32(i))
		if r == '\n' {
			lineIdx = append(lineIdx, n)
		}
		n++
	}
	byteIdx = append(byteIdx, mustUint32(len(content)))
	return n, lineIdx, byteIdx
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Если LineIdx пустой, то весь текст - одна строка
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: количество переводов строки строго до off
	lo, hi := 0, len(lineIdx)
	for lo < hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	line := lo // 0-based

	var startOff uint32
	if line > 0 {
		startOff = lineIdx[line-1] + 1
	}
	return LineCol{Line: mustUint32(line + 1), Col: off - startOff + 1}
}

func mustUint32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
