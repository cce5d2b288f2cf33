// Package watch keeps a sink in step with a source tree by re-chunking files
// as they change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ricesearch/rice-chunker/internal/index"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
)

// Indexer is the part of the index pipeline the watcher drives.
type Indexer interface {
	Run(ctx context.Context, root string) (*index.Result, error)
	Files(ctx context.Context, root string, paths []string) (*index.Result, error)
	Remove(ctx context.Context, paths []string) error
}

// Batch describes one round of processed changes. Initial is set for the
// full sync performed at start.
type Batch struct {
	Initial bool
	Changed []string
	Removed []string
	Result  *index.Result
	Err     error
}

// Config configures a Watcher.
type Config struct {
	Root     string
	Indexer  Indexer
	Debounce time.Duration // Default: 300ms

	// SkipInitialSync starts watching without chunking the whole tree first.
	SkipInitialSync bool

	// OnBatch, if set, is called after every processed batch.
	OnBatch func(Batch)

	// OnReady, if set, is called once every directory is registered and the
	// initial sync is done. Changes made after it returns are always seen.
	OnReady func()

	Log *logger.Logger
}

// Watcher re-chunks files under a root when they change.
type Watcher struct {
	root    string
	indexer Indexer
	ignore  *index.IgnoreFilter
	cfg     Config

	pending map[string]struct{} // absolute paths

	statsMu   sync.Mutex
	fileCount int
	lastSync  time.Time

	log *logger.Logger
}

// New creates a watcher for cfg.Root.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	ignore, err := index.NewIgnoreFilter(root)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:    root,
		indexer: cfg.Indexer,
		ignore:  ignore,
		cfg:     cfg,
		pending: make(map[string]struct{}),
		log:     cfg.Log.WithComponent("watcher"),
	}, nil
}

// Run watches until ctx is cancelled. Directories are registered before the
// initial sync so no change made during the sync is lost.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := w.addTree(fsWatcher, w.root); err != nil {
		return err
	}

	if !w.cfg.SkipInitialSync {
		w.log.Info("Performing initial sync", "path", w.root)
		result, err := w.indexer.Run(ctx, w.root)
		if err != nil {
			w.log.Error("Initial sync failed", "error", err)
		}
		w.record(Batch{Initial: true, Result: result, Err: err})
	}

	w.log.Info("Watching for changes", "path", w.root, "debounce", w.cfg.Debounce)
	if w.cfg.OnReady != nil {
		w.cfg.OnReady()
	}

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event, fsWatcher) {
				timer.Reset(w.cfg.Debounce)
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", "error", err)
		case <-timer.C:
			w.processBatch(ctx)
		}
	}
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(fsWatcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("Error walking path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignore.ShouldIgnore(path, true) {
			return filepath.SkipDir
		}
		return fsWatcher.Add(path)
	})
}

// handleEvent queues the changed path and reports whether anything was
// queued.
func (w *Watcher) handleEvent(event fsnotify.Event, fsWatcher *fsnotify.Watcher) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	path := event.Name

	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()
	if w.ignore.ShouldIgnore(path, isDir) {
		return false
	}

	if isDir {
		if event.Has(fsnotify.Create) {
			// Files created before the directory was registered only show
			// up through a walk.
			if err := w.addTree(fsWatcher, path); err != nil {
				w.log.Warn("Failed to watch directory", "path", path, "error", err)
			}
			rels, err := index.Walk(context.Background(), path, w.ignore)
			if err != nil {
				w.log.Warn("Failed to scan new directory", "path", path, "error", err)
			}
			for _, rel := range rels {
				w.pending[filepath.Join(path, filepath.FromSlash(rel))] = struct{}{}
			}
			return len(rels) > 0
		}
		return false
	}

	w.pending[path] = struct{}{}
	return true
}

// processBatch sends pending changes to the indexer: files that still exist
// are re-chunked, the rest are removed.
func (w *Watcher) processBatch(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}

	var changed, removed []string
	for path := range w.pending {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			removed = append(removed, rel)
		case err != nil:
			w.log.Warn("Failed to stat file", "path", path, "error", err)
		case info.Mode().IsRegular():
			changed = append(changed, rel)
		}
	}
	w.pending = make(map[string]struct{})
	sort.Strings(changed)
	sort.Strings(removed)

	w.log.Info("Processing batch", "changed", len(changed), "removed", len(removed))

	batch := Batch{Changed: changed, Removed: removed}
	if len(removed) > 0 {
		if err := w.indexer.Remove(ctx, removed); err != nil {
			w.log.Error("Failed to remove files", "error", err)
			batch.Err = err
		}
	}
	if len(changed) > 0 {
		result, err := w.indexer.Files(ctx, w.root, changed)
		if err != nil {
			w.log.Error("Failed to index batch", "error", err)
			batch.Err = err
		} else {
			w.log.Info("Batch sync complete", "chunks", result.Chunks, "failed", result.Failed)
		}
		batch.Result = result
	}
	w.record(batch)
}

func (w *Watcher) record(batch Batch) {
	if batch.Err == nil {
		w.statsMu.Lock()
		if batch.Result != nil {
			w.fileCount += batch.Result.Chunked + batch.Result.Fallback
		}
		w.lastSync = time.Now()
		w.statsMu.Unlock()
	}
	if w.cfg.OnBatch != nil {
		w.cfg.OnBatch(batch)
	}
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Stats returns the number of files chunked so far and the last successful
// sync time.
func (w *Watcher) Stats() (int, time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.fileCount, w.lastSync
}
