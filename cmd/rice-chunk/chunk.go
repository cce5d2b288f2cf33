package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/client"
	"github.com/ricesearch/rice-chunker/internal/index"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// chunkOutput is the json form of a chunked file.
type chunkOutput struct {
	File     string        `json:"file"`
	Language string        `json:"language"`
	Fallback bool          `json:"fallback,omitempty"`
	Count    int           `json:"count"`
	Chunks   []chunk.Chunk `json:"chunks"`
}

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Chunk a single file and print the chunks",
		Long: `Chunk a single file along its syntax tree and print the chunks.

Use '-' to read from stdin; --language is then required.

Examples:
  rice-chunk chunk main.go
  rice-chunk chunk --max-chunk-size 800 --overlap 1 main.go
  cat app.py | rice-chunk chunk --language python -
  rice-chunk chunk --format text README.md
  rice-chunk chunk --remote http://localhost:8080 main.go`,
		Args: cobra.ExactArgs(1),
		RunE: runChunk,
	}

	cmd.Flags().StringP("language", "l", "", "language identifier (default: detected from the file name)")
	cmd.Flags().Int("max-chunk-size", 0, "maximum characters per chunk (overrides config)")
	cmd.Flags().Int("overlap", 0, "overlap lines between chunks (overrides config)")
	cmd.Flags().String("template", "", "metadata template: minimal, default, verbose (overrides config)")
	cmd.Flags().Bool("fallback", false, "chunk by lines when the language is unsupported or parsing fails")
	cmd.Flags().String("remote", "", "chunk through a rice-chunk server at this URL instead of in process")

	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	language, _ := cmd.Flags().GetString("language")
	if language == "" && path != "-" {
		language = ast.DetectLanguage(path)
	}
	if language == "" {
		return errors.InvalidRequestError("cannot detect language; use --language")
	}

	text, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	cfg := a.chunker.Config()
	if cmd.Flags().Changed("max-chunk-size") {
		cfg.MaxChunkSize, _ = cmd.Flags().GetInt("max-chunk-size")
	}
	if cmd.Flags().Changed("overlap") {
		cfg.ChunkOverlap, _ = cmd.Flags().GetInt("overlap")
	}
	if cmd.Flags().Changed("template") {
		t, _ := cmd.Flags().GetString("template")
		cfg.MetadataTemplate = chunk.Template(t)
	}

	fileID := path
	if path == "-" {
		fileID = "stdin"
	}
	doc := chunk.SourceDocument{Text: text, Language: language, FileID: fileID}

	var chunks []chunk.Chunk
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		chunks, err = chunkRemote(cmd, remote, doc, cfg)
	} else {
		chunks, err = a.chunker.ChunkWith(cmd.Context(), doc, cfg)
	}
	fallback := false
	if useFallback, _ := cmd.Flags().GetBool("fallback"); err != nil && useFallback &&
		(errors.IsUnsupportedLanguage(err) || errors.IsParseFailure(err)) {
		a.log.Warn("Falling back to line chunking", "file", fileID, "error", err)
		chunks, err, fallback = index.NewLineChunker(cfg).Chunk(doc), nil, true
	}
	if err != nil {
		return err
	}
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}

	switch a.format {
	case formatJSONL:
		for _, c := range chunks {
			if err := a.writeJSON(c); err != nil {
				return err
			}
		}
		return nil
	case formatText:
		return writeChunksText(a.out, chunks)
	default:
		return a.writeJSON(chunkOutput{
			File:     fileID,
			Language: ast.Normalize(language),
			Fallback: fallback,
			Count:    len(chunks),
			Chunks:   chunks,
		})
	}
}

// chunkRemote sends doc to a chunking server. Only flags the user set are
// forwarded; the server applies its own configuration for the rest.
func chunkRemote(cmd *cobra.Command, baseURL string, doc chunk.SourceDocument, cfg chunk.Config) ([]chunk.Chunk, error) {
	req := client.ChunkRequest{Text: doc.Text, Language: doc.Language, FileID: doc.FileID}
	if cmd.Flags().Changed("max-chunk-size") {
		req.MaxChunkSize = &cfg.MaxChunkSize
	}
	if cmd.Flags().Changed("overlap") {
		req.ChunkOverlap = &cfg.ChunkOverlap
	}
	if cmd.Flags().Changed("template") {
		t := string(cfg.MetadataTemplate)
		req.MetadataTemplate = &t
	}

	resp, err := client.New(client.Config{BaseURL: baseURL}).Chunk(cmd.Context(), req)
	if err != nil {
		return nil, err
	}
	return resp.Chunks, nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFoundError(path)
		}
		return "", errors.InternalError(fmt.Sprintf("reading %s", path), err)
	}
	return string(data), nil
}

// writeChunksText prints each chunk under a header naming its lines and
// breadcrumb.
func writeChunksText(w io.Writer, chunks []chunk.Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		header := fmt.Sprintf("--- chunk %d  lines %d-%d", i+1, c.StartLine, c.EndLine)
		if crumb := c.Breadcrumb(); len(crumb) > 0 {
			header += "  " + strings.Join(crumb, " > ")
		}
		if c.Oversized {
			header += "  (oversized)"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		content := c.Content
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if _, err := io.WriteString(w, content); err != nil {
			return err
		}
	}
	return nil
}
