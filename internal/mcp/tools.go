package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/index"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/security"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// MCPError is a protocol-level error.
type MCPError struct {
	Code    int
	Message string
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func invalidParams(format string, args ...any) error {
	return &MCPError{Code: ErrorCodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// chunkResult is the JSON payload of the chunk tools.
type chunkResult struct {
	File     string        `json:"file"`
	Language string        `json:"language"`
	Fallback bool          `json:"fallback,omitempty"`
	Count    int           `json:"count"`
	Chunks   []chunk.Chunk `json:"chunks"`
}

// handleChunkFile handles the chunk_file tool invocation
func (s *Server) handleChunkFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, invalidParams("invalid arguments")
	}

	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, invalidParams("path parameter is required")
	}
	full, err := security.ResolveUnder(s.cfg.Root, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := os.Stat(full)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	if info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a directory", path)), nil
	}
	if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("%s is %d bytes, larger than the %d byte limit", path, info.Size(), s.cfg.MaxFileSize)), nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}

	doc := chunk.SourceDocument{
		Text:     string(data),
		Language: getStringDefault(args, "language", ast.DetectLanguage(path)),
		FileID:   path,
	}
	return s.chunk(ctx, args, doc, s.cfg.NaiveFallback)
}

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, invalidParams("invalid arguments")
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, invalidParams("text parameter is required")
	}
	lang := getStringDefault(args, "language", "")
	if lang == "" {
		return nil, invalidParams("language parameter is required")
	}

	doc := chunk.SourceDocument{
		Text:     text,
		Language: lang,
		FileID:   getStringDefault(args, "file_id", ""),
	}
	return s.chunk(ctx, args, doc, false)
}

// chunk runs the chunker with the call's overrides. Chunking errors are
// tool errors so the model can read and correct them.
func (s *Server) chunk(ctx context.Context, args map[string]interface{}, doc chunk.SourceDocument, fallback bool) (*mcp.CallToolResult, error) {
	cfg := overrides(args, s.chunker.Config())

	chunks, err := s.chunker.ChunkWith(ctx, doc, cfg)
	usedFallback := false
	if err != nil && fallback && (apperrors.IsUnsupportedLanguage(err) || apperrors.IsParseFailure(err)) {
		chunks, err, usedFallback = index.NewLineChunker(cfg).Chunk(doc), nil, true
	}
	if err != nil {
		s.log.Debug("Chunk tool failed", "file", security.SanitizeForLog(doc.FileID), "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}

	return jsonResult(chunkResult{
		File:     doc.FileID,
		Language: ast.Normalize(doc.Language),
		Fallback: usedFallback,
		Count:    len(chunks),
		Chunks:   chunks,
	})
}

// handleListLanguages handles the list_languages tool invocation
func (s *Server) handleListLanguages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"languages": s.chunker.Registry().Languages(),
	})
}

// handleSearchChunks handles the search_chunks tool invocation
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, invalidParams("invalid arguments")
	}

	query := getStringDefault(args, "query", "")
	if query == "" {
		return nil, invalidParams("query parameter is required and cannot be empty")
	}
	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, invalidParams("limit must be between 1 and 100")
	}

	hits, err := s.cfg.Searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, &MCPError{Code: ErrorCodeInternalError, Message: err.Error()}
	}

	return jsonResult(map[string]interface{}{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	})
}

// overrides applies the optional chunking arguments to base.
func overrides(args map[string]interface{}, base chunk.Config) chunk.Config {
	cfg := base
	if _, ok := args["max_chunk_size"]; ok {
		cfg.MaxChunkSize = getIntDefault(args, "max_chunk_size", cfg.MaxChunkSize)
	}
	if _, ok := args["chunk_overlap"]; ok {
		cfg.ChunkOverlap = getIntDefault(args, "chunk_overlap", cfg.ChunkOverlap)
	}
	if t, ok := args["metadata_template"].(string); ok {
		cfg.MetadataTemplate = chunk.Template(t)
	}
	return cfg
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &MCPError{Code: ErrorCodeInternalError, Message: err.Error()}
	}
	return mcp.NewToolResultText(string(data)), nil
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
