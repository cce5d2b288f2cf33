// Command rice-chunk splits source files into syntax-aligned chunks for
// retrieval pipelines.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rice-chunk",
		Short: "Rice Chunk - syntax-aware source chunking",
		Long: `Rice Chunk splits source files into chunks aligned with their syntax tree,
annotated with line ranges and breadcrumbs, for embedding and search pipelines.

Run 'rice-chunk chunk <file>' to chunk one file.
Run 'rice-chunk index <dir>' to chunk a tree into the configured sink.
Run 'rice-chunk --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "json", "output format (json, jsonl, text)")

	rootCmd.AddCommand(
		chunkCmd(),
		indexCmd(),
		watchCmd(),
		serveCmd(),
		mcpCmd(),
		languagesCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rice-chunk %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
