package chunk

import "strings"

// Overlap returns the last n lines of text verbatim, or all of text when it
// has fewer lines. A trailing newline terminates the last line rather than
// starting an empty one. It is pure: it never looks at syntax.
func Overlap(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}

	i := len(text)
	if text[i-1] == '\n' {
		i--
	}
	for seen := 0; ; {
		j := strings.LastIndexByte(text[:i], '\n')
		if j < 0 {
			return text
		}
		seen++
		if seen == n {
			return text[j+1:]
		}
		i = j
	}
}
