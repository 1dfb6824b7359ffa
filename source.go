// source.go
//
// Source and Span are the two shared types every later stage (tokens, AST
// nodes, bytecode instructions, diagnostics) carries a reference to. They
// are deliberately tiny and allocation-free after construction.
package lang

import "unicode/utf8"

// Source is an immutable handle to a named text buffer. Line starts are
// precomputed so (line, col) can be resolved without rescanning.
//
// Columns are counted in Unicode scalar values, not bytes, per spec §3.1.
type Source struct {
	Name       string
	Text       string
	lineStarts []int // byte offset of the first byte of each line (line 0 = offset 0)
}

// NewSource normalizes src (CRLF/CR -> LF, BOM stripped) and builds the
// line-start table.
func NewSource(name, src string) *Source {
	src = stripBOM(src)
	src = normalizeNewlines(src)
	s := &Source{Name: name, Text: src}
	s.lineStarts = append(s.lineStarts, 0)
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	return s
}

func stripBOM(s string) string {
	const bom = "\xef\xbb\xbf"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

func normalizeNewlines(s string) string {
	if indexByte(s, '\r') < 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\r' {
			out = append(out, '\n')
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// LineCol resolves a byte offset into a 1-based (line, col) pair. col is a
// count of Unicode scalar values from the start of the line.
func (s *Source) LineCol(byteOffset int) (line, col int) {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(s.Text) {
		byteOffset = len(s.Text)
	}
	// binary search for the line containing byteOffset
	lo, hi := 0, len(s.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.lineStarts[mid] <= byteOffset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	lineStart := s.lineStarts[lo]
	col = utf8.RuneCountInString(s.Text[lineStart:byteOffset]) + 1
	return lo + 1, col
}

// Line returns the text of the given 1-based line number, without its
// trailing newline.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lineStarts) {
		return ""
	}
	start := s.lineStarts[n-1]
	var end int
	if n < len(s.lineStarts) {
		end = s.lineStarts[n] - 1 // exclude the '\n'
	} else {
		end = len(s.Text)
	}
	if end < start {
		end = start
	}
	return s.Text[start:end]
}

// Span is a half-open byte range [Start, End) within a specific Source.
type Span struct {
	Source     *Source
	Start, End int
}

// NoSpan is the zero-value, unresolvable span.
var NoSpan = Span{}

func (sp Span) IsZero() bool { return sp.Source == nil && sp.Start == 0 && sp.End == 0 }

func (sp Span) Text() string {
	if sp.Source == nil {
		return ""
	}
	return sp.Source.Text[sp.Start:sp.End]
}

// Join returns the smallest span covering both a and b. Both must refer to
// the same Source (or one may be NoSpan, in which case the other wins).
func Join(a, b Span) Span {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	return Span{Source: a.Source, Start: start, End: end}
}
