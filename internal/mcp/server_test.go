package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
	"github.com/ricesearch/rice-chunker/internal/sink"
)

const goSrc = `package demo

// Add adds.
func Add(a, b int) int {
	return a + b
}
`

type fakeSearcher struct {
	hits  []sink.SearchHit
	err   error
	query string
	size  int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, size int) ([]sink.SearchHit, error) {
	f.query, f.size = query, size
	return f.hits, f.err
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	reg := ast.NewRegistry()
	reg.Register(ast.LangGo, func() (ast.Grammar, error) { return ast.NewGoGrammar(), nil })

	c, err := chunk.New(reg, chunk.DefaultConfig(), logger.Discard().Logger)
	require.NoError(t, err)

	cfg := Config{Root: t.TempDir(), Version: "test"}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg, c, logger.Discard())
	require.NoError(t, err)
	return s
}

func call(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decodeChunks(t *testing.T, res *mcp.CallToolResult) chunkResult {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out chunkResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func TestNewServer_Defaults(t *testing.T) {
	reg := ast.NewRegistry()
	c, err := chunk.New(reg, chunk.DefaultConfig(), nil)
	require.NoError(t, err)

	s, err := NewServer(Config{}, c, nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(s.cfg.Root))
	assert.Equal(t, "dev", s.cfg.Version)
	assert.NotNil(t, s.MCP())
}

func TestChunkText(t *testing.T) {
	s := newTestServer(t, nil)

	res, err := s.handleChunkText(context.Background(), call("chunk_text", map[string]interface{}{
		"text":     goSrc,
		"language": "golang",
		"file_id":  "demo.go",
	}))
	require.NoError(t, err)

	out := decodeChunks(t, res)
	assert.Equal(t, "demo.go", out.File)
	assert.Equal(t, "go", out.Language)
	assert.False(t, out.Fallback)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, goSrc, out.Chunks[0].Content)
	assert.Equal(t, "demo.go", out.Chunks[0].Metadata[chunk.MetaFile])
}

func TestChunkText_Overrides(t *testing.T) {
	s := newTestServer(t, nil)

	res, err := s.handleChunkText(context.Background(), call("chunk_text", map[string]interface{}{
		"text":              goSrc,
		"language":          "go",
		"max_chunk_size":    float64(40),
		"chunk_overlap":     float64(0),
		"metadata_template": "minimal",
	}))
	require.NoError(t, err)

	out := decodeChunks(t, res)
	require.Greater(t, out.Count, 1)
	var joined strings.Builder
	for _, c := range out.Chunks {
		joined.WriteString(c.Content)
		assert.NotContains(t, c.Metadata, chunk.MetaBreadcrumb)
	}
	assert.Equal(t, goSrc, joined.String())
	assert.Equal(t, 1500, s.chunker.Config().MaxChunkSize)
}

func TestChunkText_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, err := s.handleChunkText(ctx, call("chunk_text", map[string]interface{}{"language": "go"}))
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = s.handleChunkText(ctx, call("chunk_text", map[string]interface{}{"text": "x"}))
	require.True(t, errors.As(err, &mcpErr))

	// Chunking failures are tool results the caller can read.
	res, err := s.handleChunkText(ctx, call("chunk_text", map[string]interface{}{"text": "x", "language": "cobol"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "UNSUPPORTED_LANGUAGE")

	res, err = s.handleChunkText(ctx, call("chunk_text", map[string]interface{}{"text": "x", "language": "go", "max_chunk_size": float64(0)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "CONFIG_INVALID")
}

func TestChunkFile(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(s.cfg.Root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Root, "pkg", "demo.go"), []byte(goSrc), 0644))

	res, err := s.handleChunkFile(context.Background(), call("chunk_file", map[string]interface{}{"path": "pkg/demo.go"}))
	require.NoError(t, err)

	out := decodeChunks(t, res)
	assert.Equal(t, "pkg/demo.go", out.File)
	assert.Equal(t, "go", out.Language)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, 6, out.Chunks[0].EndLine)
}

func TestChunkFile_Fallback(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.NaiveFallback = true })
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Root, "notes.txt"), []byte("one\ntwo\n"), 0644))

	res, err := s.handleChunkFile(context.Background(), call("chunk_file", map[string]interface{}{"path": "notes.txt"}))
	require.NoError(t, err)

	out := decodeChunks(t, res)
	assert.True(t, out.Fallback)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "one\ntwo\n", out.Chunks[0].Content)
}

func TestChunkFile_Rejected(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxFileSize = 8 })
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Root, "big.go"), []byte(goSrc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Root, "notes.txt"), []byte("x\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.cfg.Root, "dir"), 0755))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"traversal", "../etc/passwd", "traversal"},
		{"missing", "nope.go", "cannot read"},
		{"directory", "dir", "directory"},
		{"too large", "big.go", "limit"},
		{"unsupported without fallback", "notes.txt", "UNSUPPORTED_LANGUAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleChunkFile(context.Background(), call("chunk_file", map[string]interface{}{"path": tt.path}))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}

	_, err := s.handleChunkFile(context.Background(), call("chunk_file", map[string]interface{}{}))
	assert.Error(t, err)
}

func TestListLanguages(t *testing.T) {
	s := newTestServer(t, nil)

	res, err := s.handleListLanguages(context.Background(), call("list_languages", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"languages":["go"]}`, resultText(t, res))
}

func TestSearchChunks(t *testing.T) {
	searcher := &fakeSearcher{hits: []sink.SearchHit{{ID: "a", Score: 1.5, Path: "a.go", StartLine: 1, EndLine: 4}}}
	s := newTestServer(t, func(c *Config) { c.Searcher = searcher })

	res, err := s.handleSearchChunks(context.Background(), call("search_chunks", map[string]interface{}{
		"query": "Add",
		"limit": float64(5),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Add", searcher.query)
	assert.Equal(t, 5, searcher.size)

	var out struct {
		Count   int              `json:"count"`
		Results []sink.SearchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "a.go", out.Results[0].Path)
}

func TestSearchChunks_Errors(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index closed")}
	s := newTestServer(t, func(c *Config) { c.Searcher = searcher })
	ctx := context.Background()

	var mcpErr *MCPError
	_, err := s.handleSearchChunks(ctx, call("search_chunks", map[string]interface{}{"query": ""}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = s.handleSearchChunks(ctx, call("search_chunks", map[string]interface{}{"query": "x", "limit": float64(500)}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = s.handleSearchChunks(ctx, call("search_chunks", map[string]interface{}{"query": "x"}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInternalError, mcpErr.Code)
	assert.Equal(t, 10, searcher.size)
}
