package chunk

// SourceDocument is the immutable input of one chunking call.
type SourceDocument struct {
	Text     string `json:"text"`
	Language string `json:"language"`

	// FileID is opaque; it only flows into metadata.
	FileID string `json:"file_id,omitempty"`
}

// Metadata keys.
const (
	MetaFile         = "file"
	MetaLanguage     = "language"
	MetaStartLine    = "start_line"
	MetaEndLine      = "end_line"
	MetaBreadcrumb   = "breadcrumb"
	MetaChildKinds   = "child_kinds"
	MetaChunkIndex   = "chunk_index"
	MetaOversized    = "oversized"
	MetaHasError     = "has_error"
	MetaStartByte    = "start_byte"
	MetaEndByte      = "end_byte"
	MetaOverlapLines = "overlap_lines"
)

// Chunk is one emitted fragment of a document.
type Chunk struct {
	// Content is the overlap prefix followed by the logical content.
	Content string `json:"content"`

	// StartLine and EndLine are 1-based and inclusive, computed from the
	// logical span only.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	Metadata map[string]any `json:"metadata"`

	// StartByte and EndByte delimit the logical content in the source.
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`

	// OverlapLen is the byte length of the prefix copied from the
	// previous chunk.
	OverlapLen int `json:"overlap_len"`

	// Oversized marks an indivisible unit larger than the budget.
	Oversized bool `json:"oversized,omitempty"`
}

// Logical returns the chunk content without its overlap prefix.
func (c *Chunk) Logical() string {
	return c.Content[c.OverlapLen:]
}

// OverlapPrefix returns the prefix copied from the previous chunk.
func (c *Chunk) OverlapPrefix() string {
	return c.Content[:c.OverlapLen]
}

// Breadcrumb returns the breadcrumb metadata, or nil when the template
// did not include it. Chunks decoded from JSON carry it as []any.
func (c *Chunk) Breadcrumb() []string {
	switch b := c.Metadata[MetaBreadcrumb].(type) {
	case []string:
		return b
	case []any:
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
