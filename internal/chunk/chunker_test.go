package chunk

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-chunker/internal/ast"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// treeGrammar returns a fixed tree regardless of input.
type treeGrammar struct {
	lang  string
	build func(src []byte) *ast.Tree
}

func (g treeGrammar) Language() string { return g.lang }

func (g treeGrammar) Parse(_ context.Context, src []byte) (*ast.Tree, error) {
	return g.build(src), nil
}

func registryWith(lang string, build func(src []byte) *ast.Tree) *ast.Registry {
	r := ast.NewRegistry()
	r.Register(lang, func() (ast.Grammar, error) {
		return treeGrammar{lang: lang, build: build}, nil
	})
	return r
}

// blocks builds a document of single-line blocks, each 399 characters plus
// its newline, and a tree with one leaf per block.
func blocks(letters string) (string, func([]byte) *ast.Tree) {
	var sb strings.Builder
	for _, l := range letters {
		sb.WriteString(strings.Repeat(string(l), 399))
		sb.WriteByte('\n')
	}
	text := sb.String()

	return text, func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		root := b.Root("document", false)
		for i := range letters {
			b.Add(root, "block", i*400, i*400+399, false)
		}
		return b.Tree("blocks")
	}
}

func logicalText(chunks []Chunk) string {
	var sb strings.Builder
	for i := range chunks {
		sb.WriteString(chunks[i].Logical())
	}
	return sb.String()
}

func TestChunkify_PacksSiblingsGreedily(t *testing.T) {
	text, build := blocks("abc")
	reg := registryWith("blocks", build)

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blocks", FileID: "b.txt"},
		Config{MaxChunkSize: 900, ChunkOverlap: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Len(t, chunks[0].Content, 800)
	assert.Len(t, chunks[1].Content, 400)
	assert.Equal(t, text[:800], chunks[0].Content)
	assert.Equal(t, text[800:], chunks[1].Content)

	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 3, chunks[1].EndLine)
	assert.Equal(t, text, logicalText(chunks))
}

func TestChunkify_PrependsOverlap(t *testing.T) {
	text, build := blocks("abc")
	reg := registryWith("blocks", build)

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blocks"},
		Config{MaxChunkSize: 900, ChunkOverlap: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	block2 := strings.Repeat("b", 399) + "\n"
	block3 := strings.Repeat("c", 399) + "\n"
	assert.Equal(t, 0, chunks[0].OverlapLen)
	assert.Equal(t, block2, chunks[1].OverlapPrefix())
	assert.Equal(t, block2+block3, chunks[1].Content)

	// Line bookkeeping ignores the prefix.
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, text, logicalText(chunks))
}

func TestChunkify_OversizedLeaf(t *testing.T) {
	text := strings.Repeat("x", 5000)
	reg := registryWith("blob", func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		b.Add(b.Root("document", false), "string_literal", 0, len(src), false)
		return b.Tree("blob")
	})

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blob"},
		Config{MaxChunkSize: 2000, ChunkOverlap: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Len(t, chunks[0].Content, 5000)
	assert.True(t, chunks[0].Oversized)
	assert.Equal(t, true, chunks[0].Metadata[MetaOversized])
	assert.Equal(t, []string{"document", "string_literal"}, chunks[0].Breadcrumb())
}

func TestChunkify_SplitsLongLeafAtLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString(strings.Repeat(string(rune('a'+i)), 99))
		sb.WriteByte('\n')
	}
	text := sb.String()
	reg := registryWith("blob", func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		b.Add(b.Root("document", false), "comment", 0, len(src), false)
		return b.Tree("blob")
	})

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blob"},
		Config{MaxChunkSize: 250})
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	for i, c := range chunks {
		assert.False(t, c.Oversized)
		assert.Equal(t, i*200, c.StartByte)
		assert.Equal(t, 2*i+1, c.StartLine)
		assert.Equal(t, 2*i+2, c.EndLine)
		assert.Equal(t, []string{"document", "comment"}, c.Breadcrumb())
	}
	assert.Equal(t, text, logicalText(chunks))
}

func TestChunkify_ConfigInvalid(t *testing.T) {
	text, build := blocks("ab")
	reg := registryWith("blocks", build)

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blocks"},
		Config{MaxChunkSize: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigInvalid(err))
	assert.Nil(t, chunks)
}

func TestChunkify_UnsupportedLanguage(t *testing.T) {
	chunks, err := Chunkify(context.Background(), ast.NewDefaultRegistry(),
		SourceDocument{Text: "IDENTIFICATION DIVISION.\n", Language: "cobol"}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnsupportedLanguage(err))
	assert.Nil(t, chunks)
}

func TestChunkify_UnsupportedLanguageEvenWhenEmpty(t *testing.T) {
	_, err := Chunkify(context.Background(), ast.NewRegistry(), SourceDocument{Language: "cobol"}, DefaultConfig())
	assert.True(t, apperrors.IsUnsupportedLanguage(err))
}

func TestChunkify_ParseFailure(t *testing.T) {
	text, build := blocks("a")
	reg := registryWith("blocks", build)

	_, err := Chunkify(context.Background(), reg,
		SourceDocument{Text: text + "\x00\x01", Language: "blocks"}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, apperrors.IsParseFailure(err))
}

func TestChunkify_EmptyDocument(t *testing.T) {
	_, build := blocks("a")
	reg := registryWith("blocks", build)

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Language: "blocks"}, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkify_SmallDocumentIsOneChunk(t *testing.T) {
	text, build := blocks("abc")
	reg := registryWith("blocks", build)

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blocks"},
		Config{MaxChunkSize: len(text), ChunkOverlap: 3})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, text, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].OverlapLen)
	assert.Equal(t, []string{"document"}, chunks[0].Breadcrumb())
}

func TestChunkify_CountsCharactersNotBytes(t *testing.T) {
	// Ten two-byte characters fit a budget of ten.
	text := strings.Repeat("é", 10)
	reg := registryWith("blob", func(src []byte) *ast.Tree {
		return ast.NewBuilder(len(src)).Tree("blob")
	})

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blob"},
		Config{MaxChunkSize: 10})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].Oversized)
}

func TestChunkify_DeepTreeDoesNotRecurse(t *testing.T) {
	const depth = 20000
	text := strings.Repeat("(", depth) + strings.Repeat(")", depth)
	reg := registryWith("parens", func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		parent := b.Root("document", false)
		for i := 0; i < depth; i++ {
			parent = b.Add(parent, "paren", i, len(src)-i, false)
		}
		return b.Tree("parens")
	})

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "parens"},
		Config{MaxChunkSize: 100})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Oversized)
	assert.Len(t, chunks[0].Breadcrumb(), depth+1)
	assert.Equal(t, text, logicalText(chunks))
}

func TestChunkify_FlagsParseErrors(t *testing.T) {
	text, _ := blocks("abc")
	reg := registryWith("blocks", func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		root := b.Root("document", false)
		b.Add(root, "block", 0, 399, false)
		b.Add(root, "ERROR", 400, 799, true)
		b.Add(root, "block", 800, 1199, false)
		return b.Tree("blocks")
	})

	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: text, Language: "blocks"},
		Config{MaxChunkSize: 400})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Nil(t, chunks[0].Metadata[MetaHasError])
	assert.Equal(t, true, chunks[1].Metadata[MetaHasError])
	assert.Nil(t, chunks[2].Metadata[MetaHasError])
}

func TestChunker_Chunk(t *testing.T) {
	text, build := blocks("abcd")
	reg := registryWith("blocks", build)

	c, err := New(reg, Config{MaxChunkSize: 900, ChunkOverlap: 1}, nil)
	require.NoError(t, err)

	chunks, err := c.Chunk(context.Background(), SourceDocument{Text: text, Language: "blocks"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, text, logicalText(chunks))

	_, err = New(reg, Config{MaxChunkSize: 5, ChunkOverlap: 5}, nil)
	assert.True(t, apperrors.IsConfigInvalid(err))
}

func TestChunkify_WhitespaceDocumentIsOneChunk(t *testing.T) {
	reg := registryWith("blob", func(src []byte) *ast.Tree {
		return ast.NewBuilder(len(src)).Tree("blob")
	})

	// Only the zero-length document yields no chunks.
	chunks, err := Chunkify(context.Background(), reg, SourceDocument{Text: "\n", Language: "blob"}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "\n", chunks[0].Content)

	assert.Empty(t, Build(ast.NewBuilder(0).Tree("blob"), SourceDocument{Language: "blob"}, DefaultConfig()))
}

func TestBuild_ExpandedChildJoinsOpenChunk(t *testing.T) {
	// A 100 character block followed by a function of three 100 character
	// statements, under a budget of 250.
	var sb strings.Builder
	for _, l := range "abcd" {
		sb.WriteString(strings.Repeat(string(l), 99))
		sb.WriteByte('\n')
	}
	text := sb.String()

	b := ast.NewBuilder(len(text))
	root := b.Root("document", false)
	b.Add(root, "block", 0, 99, false)
	fn := b.Add(root, "function", 100, 399, false)
	b.Add(fn, "statement", 100, 199, false)
	b.Add(fn, "statement", 200, 299, false)
	b.Add(fn, "statement", 300, 399, false)

	chunks := Build(b.Tree("blocks"), SourceDocument{Text: text, Language: "blocks"}, Config{MaxChunkSize: 250})
	require.Len(t, chunks, 2)

	// The open chunk is not closed before the function is split, so the
	// first statement packs with the preceding block and the breadcrumb
	// stops at their common ancestor.
	assert.Equal(t, text[:200], chunks[0].Content)
	assert.Equal(t, []string{"document"}, chunks[0].Breadcrumb())
	assert.Equal(t, text[200:], chunks[1].Content)
	assert.Equal(t, []string{"document", "function"}, chunks[1].Breadcrumb())
}

func TestChunker_ChunkWith(t *testing.T) {
	text := strings.Repeat("x", 500)
	reg := registryWith("blob", func(src []byte) *ast.Tree {
		b := ast.NewBuilder(len(src))
		b.Add(b.Root("document", false), "string_literal", 0, len(src), false)
		return b.Tree("blob")
	})

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := New(reg, DefaultConfig(), log)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxChunkSize = 200
	chunks, err := c.ChunkWith(context.Background(), SourceDocument{Text: text, Language: "blob", FileID: "big.txt"}, cfg)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Oversized)

	assert.Contains(t, logs.String(), "Oversized chunks emitted")
	assert.Contains(t, logs.String(), "file=big.txt")
	assert.Contains(t, logs.String(), "max_chunk_size=200")

	// The override applies to that call only.
	assert.Equal(t, 1500, c.Config().MaxChunkSize)
	chunks, err = c.Chunk(context.Background(), SourceDocument{Text: text, Language: "blob"})
	require.NoError(t, err)
	assert.False(t, chunks[0].Oversized)

	_, err = c.ChunkWith(context.Background(), SourceDocument{Text: text, Language: "blob"}, Config{MaxChunkSize: 0})
	assert.True(t, apperrors.IsConfigInvalid(err))
}
