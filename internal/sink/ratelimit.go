package sink

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// RateLimited throttles writes to a sink to a number of records per second.
type RateLimited struct {
	inner   Sink
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. The burst is one second's worth of records.
func NewRateLimited(inner Sink, recordsPerSecond float64) *RateLimited {
	burst := int(recordsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(recordsPerSecond), burst),
	}
}

// Write waits for enough tokens, in burst-sized steps, then delegates.
func (s *RateLimited) Write(ctx context.Context, records []Record) error {
	burst := s.limiter.Burst()
	for n := len(records); n > 0; n -= burst {
		if err := s.limiter.WaitN(ctx, min(n, burst)); err != nil {
			return errors.Wrap(errors.CodeTimeout, "sink rate limit wait aborted", err)
		}
	}
	return s.inner.Write(ctx, records)
}

// DeletePath delegates when the inner sink supports deletion.
func (s *RateLimited) DeletePath(ctx context.Context, path string) error {
	if d, ok := s.inner.(Deleter); ok {
		return d.DeletePath(ctx, path)
	}
	return nil
}

// Close closes the inner sink.
func (s *RateLimited) Close() error {
	return s.inner.Close()
}
