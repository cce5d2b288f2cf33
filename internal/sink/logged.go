package sink

import (
	"context"
	"time"

	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
)

// Logged wraps another sink and logs every batch.
type Logged struct {
	inner Sink
	name  string
	log   *logger.Logger
}

// NewLogged creates a logging wrapper around inner.
func NewLogged(inner Sink, name string, log *logger.Logger) *Logged {
	if log == nil {
		log = logger.Default()
	}
	return &Logged{inner: inner, name: name, log: log.WithComponent("sink")}
}

// Write logs the batch and then delegates to the inner sink.
func (s *Logged) Write(ctx context.Context, records []Record) error {
	start := time.Now()
	err := s.inner.Write(ctx, records)
	if err != nil {
		s.log.Warn("Failed to write batch",
			"sink", s.name,
			"records", len(records),
			"error", err.Error(),
		)
		return err
	}

	s.log.Debug("Wrote batch",
		"sink", s.name,
		"records", len(records),
		"duration", time.Since(start),
	)
	return nil
}

// DeletePath delegates when the inner sink supports deletion.
func (s *Logged) DeletePath(ctx context.Context, path string) error {
	d, ok := s.inner.(Deleter)
	if !ok {
		s.log.Debug("Sink cannot delete, stale chunks kept", "sink", s.name, "path", path)
		return nil
	}
	if err := d.DeletePath(ctx, path); err != nil {
		s.log.Warn("Failed to delete path", "sink", s.name, "path", path, "error", err.Error())
		return err
	}
	return nil
}

// Close closes the inner sink.
func (s *Logged) Close() error {
	return s.inner.Close()
}
