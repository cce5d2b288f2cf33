package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Tracker remembers the content hash of every chunked file so unchanged
// files can be skipped and changed files can have stale chunks removed.
type Tracker struct {
	mu    sync.RWMutex
	state trackerState
}

type trackerState struct {
	Hashes    map[string]string    `json:"hashes"`     // path -> content hash
	IndexedAt map[string]time.Time `json:"indexed_at"` // path -> chunked time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{state: trackerState{
		Hashes:    make(map[string]string),
		IndexedAt: make(map[string]time.Time),
	}}
}

// HasHash reports whether path was last chunked with exactly this hash.
func (t *Tracker) HasHash(path, hash string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	existing, ok := t.state.Hashes[path]
	return ok && existing == hash
}

// Known reports whether path has been chunked before.
func (t *Tracker) Known(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.state.Hashes[path]
	return ok
}

// SetHash records a file hash.
func (t *Tracker) SetHash(path, hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Hashes[path] = hash
	t.state.IndexedAt[path] = time.Now()
}

// RemovePath removes a path from tracking.
func (t *Tracker) RemovePath(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.state.Hashes, path)
	delete(t.state.IndexedAt, path)
}

// Paths returns all tracked paths, sorted.
func (t *Tracker) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.state.Hashes))
	for path := range t.state.Hashes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.state.Hashes)
}

// Save persists the tracker to a JSON file.
func (t *Tracker) Save(path string) error {
	t.mu.RLock()
	data, err := json.MarshalIndent(t.state, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load restores the tracker from a JSON file. A missing file is not an error.
func (t *Tracker) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // No data to load
	}
	if err != nil {
		return err
	}

	state := trackerState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Hashes == nil {
		state.Hashes = make(map[string]string)
	}
	if state.IndexedAt == nil {
		state.IndexedAt = make(map[string]time.Time)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	return nil
}
