package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/index"
	"github.com/ricesearch/rice-chunker/internal/metrics"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/sink"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Chunk every file under a directory into the configured sink",
		Long: `Walk a directory, honouring .gitignore and .chunkignore, chunk every file and
write the chunk records to the configured sink.

Files whose content hash matches the state file are skipped.

Examples:
  rice-chunk index .
  rice-chunk index --sink sqlite --sink-path chunks.db ./src
  rice-chunk index --sink kafka --force .`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	addSinkFlags(cmd)
	cmd.Flags().Int("workers", 0, "parallel workers (overrides config)")
	cmd.Flags().Bool("force", false, "re-chunk files even if unchanged")

	return cmd
}

func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().String("sink", "", "sink type: jsonl, memory, kafka, redis, sqlite, bleve (overrides config)")
	cmd.Flags().String("sink-path", "", "sink file path for jsonl, sqlite and bleve (overrides config)")
	cmd.Flags().String("state-file", "", "content hash state file (overrides config)")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after each run")
}

// applySinkFlags copies sink flag overrides into the configuration and
// validates the result.
func applySinkFlags(cmd *cobra.Command, a *app) error {
	if cmd.Flags().Changed("sink") {
		a.cfg.Sink.Type, _ = cmd.Flags().GetString("sink")
	}
	if cmd.Flags().Changed("sink-path") {
		a.cfg.Sink.Path, _ = cmd.Flags().GetString("sink-path")
	}
	if cmd.Flags().Changed("state-file") {
		a.cfg.Index.StateFile, _ = cmd.Flags().GetString("state-file")
	}
	return a.cfg.Validate()
}

// sinkToStdout reports whether chunk records go to stdout.
func sinkToStdout(a *app) bool {
	t := strings.ToLower(a.cfg.Sink.Type)
	return (t == "" || t == "jsonl") && (a.cfg.Sink.Path == "" || a.cfg.Sink.Path == "-")
}

// newPipeline opens the sink and builds a pipeline with its state loaded.
func newPipeline(cmd *cobra.Command, a *app) (*index.Pipeline, sink.Sink, error) {
	s, err := sink.New(a.cfg, a.out, a.log.WithComponent("sink"))
	if err != nil {
		return nil, nil, err
	}

	pcfg := index.PipelineConfigFrom(a.cfg.Index)
	if cmd.Flags().Changed("workers") {
		pcfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if force, _ := cmd.Flags().GetBool("force"); force {
		pcfg.SkipUnchanged = false
	}

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		a.metrics = metrics.New()
		a.metricsFile = path
		s = sink.NewInstrumented(s, a.cfg.Sink.Type, a.metrics)
	}

	p := index.NewPipeline(pcfg, a.chunker, s, a.log.WithComponent("index"))
	if a.metrics != nil {
		p.SetRecorder(a.metrics)
	}
	if a.cfg.Index.StateFile != "" {
		if err := p.Tracker().Load(a.cfg.Index.StateFile); err != nil {
			s.Close()
			return nil, nil, errors.Wrap(errors.CodeConfigInvalid, "loading state file", err)
		}
	}
	return p, s, nil
}

// writeMetrics writes the metrics file when one was requested.
func writeMetrics(a *app) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.WriteFile(a.metricsFile); err != nil {
		a.log.Warn("Failed to write metrics file", "path", a.metricsFile, "error", err)
	}
}

func saveState(a *app, p *index.Pipeline) {
	if a.cfg.Index.StateFile == "" {
		return
	}
	if err := p.Tracker().Save(a.cfg.Index.StateFile); err != nil {
		a.log.Warn("Failed to save state file", "path", a.cfg.Index.StateFile, "error", err)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := applySinkFlags(cmd, a); err != nil {
		return err
	}

	root := args[0]
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.InvalidRequestError(fmt.Sprintf("%s is not a directory", root))
	}

	p, s, err := newPipeline(cmd, a)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := p.Run(ctx, root)
	writeMetrics(a)
	if err != nil {
		return err
	}
	saveState(a, p)

	out := a.out
	if sinkToStdout(a) {
		out = cmd.ErrOrStderr()
	}
	return writeResult(out, a.format, result)
}

// writeResult prints an indexing summary.
func writeResult(w io.Writer, format string, r *index.Result) error {
	if format != formatText {
		a := &app{out: w, format: format}
		return a.writeJSON(r)
	}

	fmt.Fprintf(w, "Indexed %d files in %s\n", r.Files, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  chunked:  %d\n", r.Chunked)
	fmt.Fprintf(w, "  fallback: %d\n", r.Fallback)
	fmt.Fprintf(w, "  skipped:  %d\n", r.Skipped)
	fmt.Fprintf(w, "  failed:   %d\n", r.Failed)
	fmt.Fprintf(w, "  chunks:   %d\n", r.Chunks)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s: %s\n", e.Path, e.Message)
	}
	return nil
}
