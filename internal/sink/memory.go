package sink

import (
	"context"
	"sync"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// MemorySink keeps records in memory. It is used by tests and by the HTTP
// server for dry runs.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
	closed  bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends records.
func (s *MemorySink) Write(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.CodeUnavailable, "sink is closed")
	}
	s.records = append(s.records, records...)
	return nil
}

// DeletePath drops every record of path.
func (s *MemorySink) DeletePath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Path != path {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

// Records returns a copy of everything written so far.
func (s *MemorySink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
