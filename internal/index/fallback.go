package index

import (
	"context"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// FallbackKind is the breadcrumb of chunks made without a grammar.
const FallbackKind = "text"

// LineChunker packs whole lines up to the size budget without parsing. It
// treats the document as one indivisible node, so it shares the chunk
// builder's size, overlap and line bookkeeping.
type LineChunker struct {
	cfg chunk.Config
}

// NewLineChunker creates a line chunker; cfg must be valid.
func NewLineChunker(cfg chunk.Config) *LineChunker {
	return &LineChunker{cfg: cfg}
}

// Chunk splits doc at line boundaries.
func (c *LineChunker) Chunk(doc chunk.SourceDocument) []chunk.Chunk {
	b := ast.NewBuilder(len(doc.Text))
	b.Root(FallbackKind, false)
	return chunk.Build(b.Tree(""), doc, c.cfg)
}

// ChunkWithFallback chunks doc with the syntax-aware chunker. When the
// language is unsupported or the file cannot be parsed and fallback is not
// nil, the line chunker is used instead and the second result is true.
func ChunkWithFallback(ctx context.Context, c *chunk.Chunker, fallback *LineChunker, doc chunk.SourceDocument) ([]chunk.Chunk, bool, error) {
	chunks, err := c.Chunk(ctx, doc)
	if err == nil {
		return chunks, false, nil
	}
	if fallback == nil || !(errors.IsUnsupportedLanguage(err) || errors.IsParseFailure(err)) {
		return nil, false, err
	}
	return fallback.Chunk(doc), true, nil
}
