package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/mcp"
	"github.com/ricesearch/rice-chunker/internal/sink"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve chunking tools over the Model Context Protocol (stdio)",
		Long: `Serve chunk_file, chunk_text and list_languages as MCP tools on stdin/stdout.

When the configured sink is bleve, search_chunks is also available and
queries that index.`,
		RunE: runMCP,
	}

	cmd.Flags().String("root", ".", "directory chunk_file may read from")

	return cmd
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	root, _ := cmd.Flags().GetString("root")

	cfg := mcp.Config{
		Root:          root,
		Version:       version,
		NaiveFallback: a.cfg.Index.NaiveFallback,
		MaxFileSize:   a.cfg.Index.MaxFileSize,
	}

	if strings.EqualFold(a.cfg.Sink.Type, "bleve") && a.cfg.Sink.Path != "" {
		idx, err := sink.OpenBleve(a.cfg.Sink.Path)
		if err != nil {
			return err
		}
		defer idx.Close()
		cfg.Searcher = idx
	}

	srv, err := mcp.NewServer(cfg, a.chunker, a.log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	err = srv.Serve(ctx, cmd.InOrStdin(), a.out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
