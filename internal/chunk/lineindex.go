package chunk

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// LineIndex maps byte offsets of one document to 1-based line and column
// positions. It is built once per document and read-only afterwards.
type LineIndex struct {
	src    string
	starts []int // byte offset of the first byte of each line
}

// NewLineIndex scans src once and records every line start.
func NewLineIndex(src string) *LineIndex {
	starts := make([]int, 1, strings.Count(src, "\n")+1)
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// LineCount returns the number of lines. A trailing newline does not start
// a new line of its own.
func (x *LineIndex) LineCount() int {
	n := len(x.starts)
	if n > 1 && x.starts[n-1] == len(x.src) {
		n--
	}
	return n
}

// Line returns the 1-based line containing offset. Offsets past the end
// belong to the last line.
func (x *LineIndex) Line(offset int) int {
	if offset >= len(x.src) {
		offset = len(x.src) - 1
	}
	if offset <= 0 {
		return 1
	}
	return sort.SearchInts(x.starts, offset+1)
}

// Position returns the 1-based line and column of offset; columns count
// characters, not bytes.
func (x *LineIndex) Position(offset int) (line, column int) {
	if offset > len(x.src) {
		offset = len(x.src)
	}
	if offset < 0 {
		offset = 0
	}
	line = sort.SearchInts(x.starts, offset+1)
	return line, utf8.RuneCountInString(x.src[x.starts[line-1]:offset]) + 1
}

// LineStart returns the byte offset where the 1-based line begins.
func (x *LineIndex) LineStart(line int) int {
	if line < 1 {
		return 0
	}
	if line > len(x.starts) {
		return len(x.src)
	}
	return x.starts[line-1]
}

// Lines returns the inclusive 1-based line range covered by [start, end).
func (x *LineIndex) Lines(start, end int) (first, last int) {
	first = x.Line(start)
	if end <= start {
		return first, first
	}
	return first, x.Line(end - 1)
}

// Breaks returns the line starts strictly inside (start, end): the only
// offsets where an indivisible node may be hard split.
func (x *LineIndex) Breaks(start, end int) []int {
	lo := sort.SearchInts(x.starts, start+1)
	hi := sort.SearchInts(x.starts, end)
	if lo >= hi {
		return nil
	}
	return x.starts[lo:hi]
}
