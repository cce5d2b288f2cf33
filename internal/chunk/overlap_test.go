package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"zero lines", "a\nb\n", 0, ""},
		{"negative lines", "a\nb\n", -1, ""},
		{"empty text", "", 3, ""},
		{"last line", "a\nb\nc\n", 1, "c\n"},
		{"last two lines", "a\nb\nc\n", 2, "b\nc\n"},
		{"no trailing newline", "a\nb\nc", 2, "b\nc"},
		{"fewer lines than asked", "a\nb\n", 5, "a\nb\n"},
		{"single line", "abc", 1, "abc"},
		{"blank lines count", "a\n\n\n", 2, "\n\n"},
		{"multibyte", "αβ\nγδ\n", 1, "γδ\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlap(tt.text, tt.n))
		})
	}
}

func TestOverlap_Deterministic(t *testing.T) {
	text := "x := 1\ny := 2\nz := 3\n"
	assert.Equal(t, Overlap(text, 2), Overlap(text, 2))
}
