package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-chunker/internal/index"
)

// fakeIndexer records what the watcher asks for.
type fakeIndexer struct {
	mu      sync.Mutex
	runs    int
	files   [][]string
	removed [][]string
	failRun bool
}

func (f *fakeIndexer) Run(ctx context.Context, root string) (*index.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	if f.failRun {
		return nil, errors.New("walk failed")
	}
	return &index.Result{Files: 1, Chunked: 1}, nil
}

func (f *fakeIndexer) Files(ctx context.Context, root string, paths []string) (*index.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, paths)
	return &index.Result{Files: len(paths), Chunked: len(paths)}, nil
}

func (f *fakeIndexer) Remove(ctx context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, paths)
	return nil
}

type harness struct {
	root    string
	indexer *fakeIndexer
	watcher *Watcher
	batches chan Batch
	cancel  context.CancelFunc
	done    chan error
}

func start(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.tmp\n"), 0644))

	h := &harness{
		root:    root,
		indexer: &fakeIndexer{},
		batches: make(chan Batch, 16),
		done:    make(chan error, 1),
	}
	ready := make(chan struct{})
	cfg := Config{
		Root:     root,
		Indexer:  h.indexer,
		Debounce: 50 * time.Millisecond,
		OnBatch:  func(b Batch) { h.batches <- b },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.OnReady = func() { close(ready) }

	w, err := New(cfg)
	require.NoError(t, err)
	h.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Changes made before the watches exist would be lost.
	select {
	case <-ready:
	case err := <-h.done:
		h.done <- err
		t.Fatalf("watcher exited before it was ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
	return h
}

func (h *harness) next(t *testing.T) Batch {
	t.Helper()
	select {
	case b := <-h.batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

func TestWatcher_InitialSync(t *testing.T) {
	h := start(t, nil)

	b := h.next(t)
	assert.True(t, b.Initial)
	require.NoError(t, b.Err)
	assert.Equal(t, 1, b.Result.Chunked)

	count, last := h.watcher.Stats()
	assert.Equal(t, 1, count)
	assert.False(t, last.IsZero())
}

func TestWatcher_InitialSyncFailureKeepsWatching(t *testing.T) {
	h := start(t, func(c *Config) { c.Indexer.(*fakeIndexer).failRun = true })

	b := h.next(t)
	assert.True(t, b.Initial)
	assert.Error(t, b.Err)

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a.go"), []byte("package a\n"), 0644))
	b = h.next(t)
	assert.Equal(t, []string{"a.go"}, b.Changed)
}

func TestWatcher_ChangesAndRemovals(t *testing.T) {
	h := start(t, func(c *Config) { c.SkipInitialSync = true })

	a := filepath.Join(h.root, "a.go")
	require.NoError(t, os.WriteFile(a, []byte("package a\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "b.go"), []byte("package b\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "scratch.tmp"), []byte("x"), 0644))

	b := h.next(t)
	assert.False(t, b.Initial)
	assert.Equal(t, []string{"a.go", "b.go"}, b.Changed)
	assert.Empty(t, b.Removed)

	require.NoError(t, os.Remove(a))
	b = h.next(t)
	assert.Empty(t, b.Changed)
	assert.Equal(t, []string{"a.go"}, b.Removed)

	h.indexer.mu.Lock()
	defer h.indexer.mu.Unlock()
	assert.Equal(t, 0, h.indexer.runs)
	assert.Equal(t, [][]string{{"a.go"}}, h.indexer.removed)
}

func TestWatcher_NewDirectory(t *testing.T) {
	h := start(t, func(c *Config) { c.SkipInitialSync = true })

	nested := filepath.Join(h.root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "c.go"), []byte("package sub\n"), 0644))

	// The file may arrive through the directory scan or a later event.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case b := <-h.batches:
			if assert.NoError(t, b.Err) && contains(b.Changed, "pkg/sub/c.go") {
				return
			}
		case <-deadline:
			t.Fatal("new file was never reported")
		}
	}
}

func TestWatcher_IgnoredDirectory(t *testing.T) {
	h := start(t, func(c *Config) { c.SkipInitialSync = true })

	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "node_modules", "x"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "node_modules", "x", "i.js"), []byte("x\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "main.go"), []byte("package main\n"), 0644))

	b := h.next(t)
	assert.Equal(t, []string{"main.go"}, b.Changed)
}

func TestWatcher_ReadyAfterInitialSync(t *testing.T) {
	h := start(t, nil)

	// start returned, so the initial batch has already been recorded.
	select {
	case b := <-h.batches:
		assert.True(t, b.Initial)
	default:
		t.Fatal("ready was signalled before the initial sync finished")
	}

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "late.go"), []byte("package late\n"), 0644))
	b := h.next(t)
	assert.Equal(t, []string{"late.go"}, b.Changed)
}

func TestNew_Defaults(t *testing.T) {
	w, err := New(Config{Root: t.TempDir(), Indexer: &fakeIndexer{}})
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, w.cfg.Debounce)
	assert.True(t, filepath.IsAbs(w.Root()))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
