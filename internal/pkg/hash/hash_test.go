package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.want, SHA256(tt.input))
		})
	}

	assert.Equal(t, SHA256([]byte("hello")), SHA256String("hello"))
}

func TestSHA256Short(t *testing.T) {
	full := SHA256([]byte("hello"))

	assert.Equal(t, full[:8], SHA256Short([]byte("hello"), 8))
	assert.Equal(t, full, SHA256Short([]byte("hello"), 64))
	assert.Equal(t, full, SHA256Short([]byte("hello"), 100))
}

func TestChunkID(t *testing.T) {
	id1 := ChunkID("src/main.go", 10, 50)
	id2 := ChunkID("src/main.go", 10, 50)
	assert.Equal(t, id1, id2)

	assert.NotEqual(t, id1, ChunkID("src/main.go", 10, 51))
	assert.NotEqual(t, id1, ChunkID("src/main.go", 105, 0))
	assert.NotEqual(t, id1, ChunkID("src/other.go", 10, 50))

	assert.Len(t, id1, 16)
	for _, c := range id1 {
		assert.True(t, strings.ContainsRune("0123456789abcdef", c), "non-hex character %c", c)
	}
}

func TestDocumentID(t *testing.T) {
	id1 := DocumentID("src/main.go", "abc123")
	assert.Equal(t, id1, DocumentID("src/main.go", "abc123"))
	assert.NotEqual(t, id1, DocumentID("src/main.go", "abc124"))
	assert.Len(t, id1, 16)
}

func BenchmarkChunkID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ChunkID("src/components/Button.tsx", 100, 200)
	}
}
