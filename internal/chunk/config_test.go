package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1500, cfg.MaxChunkSize)
	assert.Equal(t, 2, cfg.ChunkOverlap)
	assert.Equal(t, TemplateDefault, cfg.MetadataTemplate)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero size", Config{MaxChunkSize: 0}, "max_chunk_size must be positive"},
		{"negative size", Config{MaxChunkSize: -10}, "max_chunk_size must be positive"},
		{"negative overlap", Config{MaxChunkSize: 10, ChunkOverlap: -1}, "chunk_overlap must not be negative"},
		{"overlap equals size", Config{MaxChunkSize: 10, ChunkOverlap: 10}, "chunk_overlap must be less than max_chunk_size"},
		{"unknown template", Config{MaxChunkSize: 10, MetadataTemplate: "loud"}, `unknown metadata template "loud"`},
		{"empty template is default", Config{MaxChunkSize: 10}, ""},
		{"verbose", Config{MaxChunkSize: 10, ChunkOverlap: 9, MetadataTemplate: TemplateVerbose}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigInvalid(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	err := Config{MaxChunkSize: 0, ChunkOverlap: -1, MetadataTemplate: "x"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_chunk_size")
	assert.Contains(t, err.Error(), "chunk_overlap")
	assert.Contains(t, err.Error(), "template")
}

func TestParseTemplate(t *testing.T) {
	for in, want := range map[string]Template{
		"":         TemplateDefault,
		"minimal":  TemplateMinimal,
		" Verbose": TemplateVerbose,
		"DEFAULT":  TemplateDefault,
	} {
		got, err := ParseTemplate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTemplate("full")
	assert.True(t, apperrors.IsConfigInvalid(err))
}
