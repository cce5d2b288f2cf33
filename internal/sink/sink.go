// Package sink delivers chunk records to downstream storage.
//
// Sinks receive self-sufficient records: each carries the chunk content and
// its metadata, so no backend ever needs to re-read the source file.
package sink

import (
	"context"
	"time"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/hash"
)

// Sink receives batches of records.
type Sink interface {
	// Write stores a batch. Implementations must be safe for concurrent use.
	Write(ctx context.Context, records []Record) error

	// Close flushes and releases resources.
	Close() error
}

// Deleter is implemented by sinks that can drop every record of a file,
// which watch mode uses when files change or disappear.
type Deleter interface {
	DeletePath(ctx context.Context, path string) error
}

// Record is one chunk as handed to a sink.
type Record struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Path       string         `json:"path"`
	Language   string         `json:"language"`
	Index      int            `json:"chunk_index"`
	Content    string         `json:"content"`
	StartLine  int            `json:"start_line"`
	EndLine    int            `json:"end_line"`
	StartByte  int            `json:"start_byte"`
	EndByte    int            `json:"end_byte"`
	OverlapLen int            `json:"overlap_len"`
	Oversized  bool           `json:"oversized,omitempty"`
	Fallback   bool           `json:"fallback,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IndexedAt  time.Time      `json:"indexed_at"`
}

// Source identifies the document records are built from.
type Source struct {
	Path       string
	DocumentID string
	Language   string

	// Fallback marks chunks produced by the line chunker.
	Fallback bool
}

// FromChunks converts the chunks of one document into records. IDs are
// stable for a given path and logical span.
func FromChunks(src Source, chunks []chunk.Chunk, now time.Time) []Record {
	records := make([]Record, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		records[i] = Record{
			ID:         hash.ChunkID(src.Path, c.StartByte, c.EndByte),
			DocumentID: src.DocumentID,
			Path:       src.Path,
			Language:   src.Language,
			Index:      i,
			Content:    c.Content,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			StartByte:  c.StartByte,
			EndByte:    c.EndByte,
			OverlapLen: c.OverlapLen,
			Oversized:  c.Oversized,
			Fallback:   src.Fallback,
			Metadata:   c.Metadata,
			IndexedAt:  now,
		}
	}
	return records
}

// Breadcrumb returns the record's breadcrumb metadata, if any.
func (r *Record) Breadcrumb() []string {
	switch b := r.Metadata[chunk.MetaBreadcrumb].(type) {
	case []string:
		return b
	case []any:
		// Records decoded from JSON.
		out := make([]string, 0, len(b))
		for _, v := range b {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
