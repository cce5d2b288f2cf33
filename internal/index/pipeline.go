package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/config"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
	"github.com/ricesearch/rice-chunker/internal/sink"
)

// PipelineConfig configures the indexing pipeline.
type PipelineConfig struct {
	// Workers is the number of files chunked in parallel.
	Workers int

	// BatchSize is the number of records per sink write.
	BatchSize int

	// MaxFileSize skips larger files.
	MaxFileSize int64

	// NaiveFallback chunks unsupported or unparsable files by lines.
	NaiveFallback bool

	// SkipUnchanged skips files whose content hash has not changed.
	SkipUnchanged bool
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:       4,
		BatchSize:     64,
		MaxFileSize:   1 << 20,
		NaiveFallback: true,
		SkipUnchanged: true,
	}
}

// PipelineConfigFrom converts the index section of the application config.
func PipelineConfigFrom(cfg config.IndexConfig) PipelineConfig {
	return PipelineConfig{
		Workers:       cfg.Workers,
		BatchSize:     cfg.BatchSize,
		MaxFileSize:   cfg.MaxFileSize,
		NaiveFallback: cfg.NaiveFallback,
		SkipUnchanged: cfg.SkipUnchanged,
	}
}

// Recorder records chunking outcomes. The metrics package satisfies it.
type Recorder interface {
	RecordChunk(language string, d time.Duration, chunks []chunk.Chunk, err error)
	RecordFile(status string)
}

// Pipeline orchestrates the indexing flow:
// Files → Documents → Chunks → Records → Sink
type Pipeline struct {
	cfg      PipelineConfig
	chunker  *chunk.Chunker
	fallback *LineChunker
	sink     sink.Sink
	tracker  *Tracker
	metrics  Recorder
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(cfg PipelineConfig, chunker *chunk.Chunker, s sink.Sink, log *logger.Logger) *Pipeline {
	defaults := DefaultPipelineConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{
		cfg:     cfg,
		chunker: chunker,
		sink:    s,
		tracker: NewTracker(),
		log:     log.WithComponent("index"),
		now:     time.Now,
	}
	if cfg.NaiveFallback {
		p.fallback = NewLineChunker(chunker.Config())
	}
	return p
}

// SetRecorder makes the pipeline report every chunked file to r.
func (p *Pipeline) SetRecorder(r Recorder) {
	p.metrics = r
}

// Tracker returns the content hash tracker, for persisting between runs.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// File outcomes.
const (
	StatusChunked  = "chunked"
	StatusFallback = "fallback"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Result summarizes one indexing run.
type Result struct {
	Files    int           `json:"files"`
	Chunked  int           `json:"chunked"`
	Fallback int           `json:"fallback"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
	Errors   []FileError   `json:"errors,omitempty"`
}

// FileError describes a file that could not be chunked.
type FileError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fileOutcome struct {
	status  string
	hash    string
	records []sink.Record
	err     error
}

// Run walks root and chunks every file that is not ignored.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	ignore, err := NewIgnoreFilter(root)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidRequest, "failed to load ignore files", err)
	}

	paths, err := Walk(ctx, root, ignore)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidRequest, fmt.Sprintf("failed to walk %s", root), err)
	}

	return p.Files(ctx, root, paths)
}

// Files chunks the given paths, relative to root, and writes their records
// to the sink. Per-file failures are reported in the result; sink failures
// abort the run.
func (p *Pipeline) Files(ctx context.Context, root string, paths []string) (*Result, error) {
	start := time.Now()
	result := &Result{Files: len(paths)}

	batcher := NewBatcher(p.sink, p.cfg.BatchSize)
	hashes := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, path := range paths {
		g.Go(func() error {
			out := p.processFile(gctx, root, path)

			if len(out.records) > 0 {
				if err := batcher.Add(gctx, out.records); err != nil {
					return err
				}
			}

			if p.metrics != nil {
				p.metrics.RecordFile(out.status)
			}

			mu.Lock()
			defer mu.Unlock()
			switch out.status {
			case StatusChunked:
				result.Chunked++
			case StatusFallback:
				result.Fallback++
			case StatusSkipped:
				result.Skipped++
			case StatusFailed:
				result.Failed++
				result.Errors = append(result.Errors, FileError{
					Path:    path,
					Code:    errors.CodeOf(out.err),
					Message: out.err.Error(),
				})
			}
			if out.hash != "" {
				hashes[path] = out.hash
			}
			result.Chunks += len(out.records)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := batcher.Flush(ctx); err != nil {
		return nil, err
	}

	for path, h := range hashes {
		p.tracker.SetHash(path, h)
	}

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Path < result.Errors[j].Path
	})
	result.Duration = time.Since(start)

	p.log.Info("Indexing complete",
		"root", root,
		"files", result.Files,
		"chunked", result.Chunked,
		"fallback", result.Fallback,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)

	return result, nil
}

// processFile reads and chunks one file. A previously chunked file has its
// stale records deleted from the sink before the new ones are queued.
func (p *Pipeline) processFile(ctx context.Context, root, path string) fileOutcome {
	log := p.log.WithFile(path)
	full := filepath.Join(root, filepath.FromSlash(path))

	info, err := os.Stat(full)
	if err != nil {
		return fileOutcome{status: StatusFailed, err: errors.Wrap(errors.CodeNotFound, "failed to stat file", err)}
	}
	if p.cfg.MaxFileSize > 0 && info.Size() > p.cfg.MaxFileSize {
		log.Debug("Skipping large file", "size", info.Size())
		return fileOutcome{status: StatusSkipped}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return fileOutcome{status: StatusFailed, err: errors.Wrap(errors.CodeInternal, "failed to read file", err)}
	}
	if IsBinary(data) {
		log.Debug("Skipping binary file")
		return fileOutcome{status: StatusSkipped}
	}

	doc := NewDocument(path, string(data))
	if err := ValidateDocument(doc, p.cfg.MaxFileSize); err != nil {
		return fileOutcome{status: StatusFailed, err: err}
	}
	if p.cfg.SkipUnchanged && p.tracker.HasHash(doc.Path, doc.Hash) {
		return fileOutcome{status: StatusSkipped}
	}

	start := time.Now()
	chunks, fellBack, err := ChunkWithFallback(ctx, p.chunker, p.fallback, doc.Source())
	if p.metrics != nil {
		p.metrics.RecordChunk(doc.Language, time.Since(start), chunks, err)
	}
	if err != nil {
		log.Debug("Failed to chunk file", "error", err)
		return fileOutcome{status: StatusFailed, err: err}
	}

	if p.tracker.Known(doc.Path) {
		if err := p.deletePath(ctx, doc.Path); err != nil {
			return fileOutcome{status: StatusFailed, err: err}
		}
	}

	status := StatusChunked
	if fellBack {
		status = StatusFallback
		log.Debug("Chunked by lines", "language", doc.Language)
	}

	src := sink.Source{
		Path:       doc.Path,
		DocumentID: doc.ID(),
		Language:   doc.Language,
		Fallback:   fellBack,
	}
	return fileOutcome{
		status:  status,
		hash:    doc.Hash,
		records: sink.FromChunks(src, chunks, p.now()),
	}
}

// Remove deletes the chunks of removed files and forgets their hashes.
func (p *Pipeline) Remove(ctx context.Context, paths []string) error {
	for _, path := range paths {
		path = filepath.ToSlash(path)
		if err := p.deletePath(ctx, path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		p.tracker.RemovePath(path)
	}
	return nil
}

func (p *Pipeline) deletePath(ctx context.Context, path string) error {
	d, ok := p.sink.(sink.Deleter)
	if !ok {
		return nil
	}
	return d.DeletePath(ctx, path)
}
