package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chunking API",
		Long: `Start an HTTP server exposing:
  GET  /healthz        liveness
  GET  /v1/languages   supported languages
  POST /v1/chunk       chunk a document`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (overrides config)")
	cmd.Flags().String("host", "", "HTTP server host (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		a.cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}

	srv := server.New(server.ConfigFrom(a.cfg.Server, version), a.chunker, a.log)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
