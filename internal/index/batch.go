package index

import (
	"context"
	"sync"

	"github.com/ricesearch/rice-chunker/internal/sink"
)

// Batcher groups records from concurrent workers into fixed-size sink
// writes. Records of one Add call stay contiguous and in order.
type Batcher struct {
	mu      sync.Mutex
	sink    sink.Sink
	size    int
	pending []sink.Record
	written int
	batches int
}

// NewBatcher creates a batcher writing to s in batches of size records.
func NewBatcher(s sink.Sink, size int) *Batcher {
	if size <= 0 {
		size = 64
	}
	return &Batcher{sink: s, size: size}
}

// Add queues records and writes every full batch.
func (b *Batcher) Add(ctx context.Context, records []sink.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, records...)
	for len(b.pending) >= b.size {
		if err := b.write(ctx, b.pending[:b.size]); err != nil {
			return err
		}
		b.pending = b.pending[b.size:]
	}
	return nil
}

// Flush writes whatever is queued.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	if err := b.write(ctx, b.pending); err != nil {
		return err
	}
	b.pending = nil
	return nil
}

func (b *Batcher) write(ctx context.Context, batch []sink.Record) error {
	if err := b.sink.Write(ctx, batch); err != nil {
		return err
	}
	b.written += len(batch)
	b.batches++
	return nil
}

// Stats returns the number of records and batches written so far.
func (b *Batcher) Stats() (records, batches int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written, b.batches
}
