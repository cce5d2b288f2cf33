// Package mcp serves the chunker as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
	"github.com/ricesearch/rice-chunker/internal/sink"
)

// ServerName is the MCP server name.
const ServerName = "rice-chunker"

// Searcher answers full-text queries over previously written chunks.
type Searcher interface {
	Search(ctx context.Context, query string, size int) ([]sink.SearchHit, error)
}

// Config configures the MCP server.
type Config struct {
	// Root bounds the files chunk_file may read.
	Root string

	Version string

	// NaiveFallback chunks unsupported or unparsable files by lines.
	NaiveFallback bool

	// MaxFileSize rejects larger files. Zero means no limit.
	MaxFileSize int64

	// Searcher enables the search_chunks tool when set.
	Searcher Searcher
}

// Server wraps the MCP server with the chunker.
type Server struct {
	mcp     *server.MCPServer
	chunker *chunk.Chunker
	cfg     Config
	log     *logger.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(cfg Config, c *chunk.Chunker, log *logger.Logger) (*Server, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, cfg.Version, server.WithToolCapabilities(false)),
		chunker: c,
		cfg:     cfg,
		log:     log.WithComponent("mcp"),
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkFileTool(), s.handleChunkFile)
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)
	s.mcp.AddTool(listLanguagesTool(), s.handleListLanguages)
	if s.cfg.Searcher != nil {
		s.mcp.AddTool(searchChunksTool(), s.handleSearchChunks)
	}
}

// Serve reads JSON-RPC requests from in and writes responses to out until
// ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))

	s.log.Info("MCP server ready", "root", s.cfg.Root)
	return stdio.Listen(ctx, in, out)
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}
