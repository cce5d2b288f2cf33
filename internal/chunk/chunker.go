package chunk

import (
	"context"
	"log/slog"

	"github.com/ricesearch/rice-chunker/internal/ast"
)

// Chunkify parses doc with the grammar registered for its language and
// splits it into chunks. Configuration and language are checked before any
// work is done; on error no chunks are returned.
//
// A document no larger than cfg.MaxChunkSize comes back as exactly one
// chunk, except the empty document, which has no content to carry and
// yields zero chunks.
func Chunkify(ctx context.Context, reg *ast.Registry, doc SourceDocument, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := reg.Grammar(doc.Language); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, nil
	}

	tree, err := reg.Parse(ctx, doc.Language, []byte(doc.Text))
	if err != nil {
		return nil, err
	}
	return Build(tree, doc, cfg), nil
}

// Build splits doc along tree. The tree must have been parsed from
// doc.Text and cfg must be valid.
//
// The logical contents of the returned chunks concatenate back to
// doc.Text exactly. Every chunk except the first starts with the last
// cfg.ChunkOverlap lines of the previous chunk's logical content.
func Build(tree *ast.Tree, doc SourceDocument, cfg Config) []Chunk {
	lines := NewLineIndex(doc.Text)
	spans := buildSpans(tree, doc.Text, lines, cfg.MaxChunkSize)
	if len(spans) == 0 {
		return nil
	}

	ann := &annotator{tree: tree, lines: lines, doc: doc, template: cfg.template()}
	chunks := make([]Chunk, len(spans))
	prev := ""
	for i, s := range spans {
		logical := doc.Text[s.start:s.end]
		prefix := ""
		if i > 0 {
			prefix = Overlap(prev, cfg.ChunkOverlap)
		}

		c := &chunks[i]
		c.Content = prefix + logical
		c.StartByte = s.start
		c.EndByte = s.end
		c.OverlapLen = len(prefix)
		c.Oversized = s.oversized
		c.StartLine, c.EndLine = lines.Lines(s.start, s.end)
		ann.annotate(c, s, i)

		prev = logical
	}
	return chunks
}

// Chunker binds a registry and a configuration for repeated use. It holds
// no per-document state, so one Chunker may be shared by many goroutines.
type Chunker struct {
	registry *ast.Registry
	config   Config
	log      *slog.Logger
}

// New creates a chunker. The configuration is validated up front.
func New(reg *ast.Registry, cfg Config, log *slog.Logger) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = ast.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Chunker{registry: reg, config: cfg, log: log}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Registry returns the grammar registry the chunker parses with.
func (c *Chunker) Registry() *ast.Registry {
	return c.registry
}

// Chunk splits one document with the chunker's configuration.
func (c *Chunker) Chunk(ctx context.Context, doc SourceDocument) ([]Chunk, error) {
	return c.ChunkWith(ctx, doc, c.config)
}

// ChunkWith splits one document with cfg in place of the chunker's
// configuration, for callers that override it per request.
func (c *Chunker) ChunkWith(ctx context.Context, doc SourceDocument, cfg Config) ([]Chunk, error) {
	chunks, err := Chunkify(ctx, c.registry, doc, cfg)
	if err != nil {
		return nil, err
	}

	oversized := 0
	for i := range chunks {
		if chunks[i].Oversized {
			oversized++
		}
	}
	if oversized > 0 {
		c.log.Debug("Oversized chunks emitted",
			"file", doc.FileID,
			"language", doc.Language,
			"oversized", oversized,
			"max_chunk_size", cfg.MaxChunkSize,
		)
	}
	return chunks, nil
}
