package session

import "strings"

// OffsetOf converts a 1-based line and byte column in src back to a byte
// offset. It returns -1 for positions outside src.
func OffsetOf(src string, p Position) int {
	if p.Line < 1 || p.Column < 1 {
		return -1
	}
	start := 0
	for line := 1; line < p.Line; line++ {
		i := strings.IndexByte(src[start:], '\n')
		if i < 0 {
			return -1
		}
		start += i + 1
	}
	offset := start + p.Column - 1
	if offset > len(src) {
		return -1
	}
	return offset
}

// OpenQuote reports whether a single or double quoted literal opens at
// offset and is still open at the end of src. A line break that is not
// escaped ends the literal, so such text is malformed rather than
// unfinished.
func OpenQuote(src string, offset int) bool {
	if offset < 0 || offset >= len(src) {
		return false
	}
	quote := src[offset]
	if quote != '"' && quote != '\'' {
		return false
	}
	for i := offset + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote, '\n':
			return false
		}
	}
	return true
}
