// Package index walks source trees, chunks every file and delivers the
// chunks to a sink.
package index

import (
	"bytes"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/hash"
)

// Document represents a source file to be chunked.
type Document struct {
	Path     string `json:"path"` // slash-separated, relative to the walk root
	Content  string `json:"content"`
	Language string `json:"language"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
}

// NewDocument creates a new document from path and content.
func NewDocument(path, content string) *Document {
	return &Document{
		Path:     filepath.ToSlash(path),
		Content:  content,
		Language: ast.DetectLanguage(path),
		Hash:     hash.SHA256String(content),
		Size:     int64(len(content)),
	}
}

// ID returns the document identifier used in records.
func (d *Document) ID() string {
	return hash.DocumentID(d.Path, d.Hash)
}

// Source returns the chunker input for the document.
func (d *Document) Source() chunk.SourceDocument {
	return chunk.SourceDocument{Text: d.Content, Language: d.Language, FileID: d.Path}
}

// Content limits
const (
	MaxDocumentSize = 10 * 1024 * 1024 // 10MB
	MaxPathLength   = 1024
)

// ValidateDocument validates a document for chunking.
func ValidateDocument(doc *Document, maxSize int64) error {
	if maxSize <= 0 || maxSize > MaxDocumentSize {
		maxSize = MaxDocumentSize
	}

	if doc.Path == "" {
		return errors.ValidationError("document path cannot be empty")
	}

	if len(doc.Path) > MaxPathLength {
		return errors.ValidationError(fmt.Sprintf("path exceeds maximum length of %d", MaxPathLength))
	}

	if doc.Size > maxSize {
		return errors.ValidationError(fmt.Sprintf("document size %d exceeds maximum of %d bytes", doc.Size, maxSize))
	}

	return nil
}

// IsBinary reports whether data looks like a binary file: NUL bytes in the
// first 8KB or invalid UTF-8.
func IsBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(data)
}
