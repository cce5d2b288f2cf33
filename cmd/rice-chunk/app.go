package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/config"
	"github.com/ricesearch/rice-chunker/internal/metrics"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
)

// Output formats.
const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
	formatText  = "text"
)

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	chunker *chunk.Chunker
	format  string
	out     io.Writer

	metrics     *metrics.Metrics
	metricsFile string
}

// setup loads configuration and builds the logger and chunker.
func setup(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case formatJSON, formatJSONL, formatText:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown output format: %s", format))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	c, err := chunk.New(ast.Default(), cfg.ChunkingConfig(), log.WithComponent("chunker").Logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		chunker: c,
		format:  format,
		out:     cmd.OutOrStdout(),
	}, nil
}

// writeJSON prints v as indented JSON, or compact for jsonl.
func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	if a.format != formatJSONL {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
