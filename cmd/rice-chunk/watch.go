package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/watch"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the sink in step with a directory as files change",
		Long: `Chunk a directory into the configured sink, then re-chunk files as they are
created, modified or removed until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	addSinkFlags(cmd)
	cmd.Flags().Int("workers", 0, "parallel workers (overrides config)")
	cmd.Flags().Bool("force", false, "re-chunk files even if unchanged")
	cmd.Flags().Duration("debounce", 0, "wait this long after the last change before re-chunking (overrides config)")
	cmd.Flags().Bool("skip-initial", false, "do not chunk the whole tree at start")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := applySinkFlags(cmd, a); err != nil {
		return err
	}

	p, s, err := newPipeline(cmd, a)
	if err != nil {
		return err
	}
	defer s.Close()

	debounce := a.cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}
	skipInitial, _ := cmd.Flags().GetBool("skip-initial")

	w, err := watch.New(watch.Config{
		Root:            args[0],
		Indexer:         p,
		Debounce:        debounce,
		SkipInitialSync: skipInitial,
		OnBatch: func(b watch.Batch) {
			if b.Err == nil {
				saveState(a, p)
			}
			writeMetrics(a)
		},
		Log: a.log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	start := time.Now()
	err = w.Run(ctx)
	files, _ := w.Stats()
	a.log.Info("Watcher stopped", "files", files, "uptime", time.Since(start).Round(time.Second))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
