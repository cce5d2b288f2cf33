// Package chunk splits source documents into bounded-size, syntax-aligned
// chunks ready for embedding and retrieval.
package chunk

import (
	"fmt"
	"strings"

	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// Template selects which metadata fields the annotator populates. It never
// changes chunk boundaries.
type Template string

// Metadata templates.
const (
	TemplateMinimal Template = "minimal"
	TemplateDefault Template = "default"
	TemplateVerbose Template = "verbose"
)

// ParseTemplate parses a template name; the empty string means default.
func ParseTemplate(s string) (Template, error) {
	switch t := Template(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TemplateDefault, nil
	case TemplateMinimal, TemplateDefault, TemplateVerbose:
		return t, nil
	default:
		return "", apperrors.ConfigInvalidError(fmt.Sprintf("unknown metadata template %q (must be minimal, default, or verbose)", s))
	}
}

// Config holds configuration for the chunker.
type Config struct {
	// MaxChunkSize is the budget for a chunk's logical content, in
	// characters (Unicode code points).
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"`

	// ChunkOverlap is the number of trailing lines of the previous chunk
	// prepended to the next one.
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// MetadataTemplate controls which metadata fields are populated.
	MetadataTemplate Template `json:"metadata_template" yaml:"metadata_template"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:     1500,
		ChunkOverlap:     2,
		MetadataTemplate: TemplateDefault,
	}
}

// Validate returns a CONFIG_INVALID error describing every problem found.
func (c Config) Validate() error {
	var errs []string

	if c.MaxChunkSize <= 0 {
		errs = append(errs, "max_chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 {
		errs = append(errs, "chunk_overlap must not be negative")
	}
	if c.MaxChunkSize > 0 && c.ChunkOverlap >= c.MaxChunkSize {
		errs = append(errs, "chunk_overlap must be less than max_chunk_size")
	}
	if _, err := ParseTemplate(string(c.MetadataTemplate)); err != nil {
		errs = append(errs, fmt.Sprintf("unknown metadata template %q", c.MetadataTemplate))
	}

	if len(errs) > 0 {
		return apperrors.ConfigInvalidError(strings.Join(errs, "; "))
	}
	return nil
}

func (c Config) template() Template {
	t, err := ParseTemplate(string(c.MetadataTemplate))
	if err != nil {
		return TemplateDefault
	}
	return t
}
