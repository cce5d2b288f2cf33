package sink

import (
	"context"
	"time"
)

// MetricsRecorder records sink writes. The metrics package satisfies it.
type MetricsRecorder interface {
	RecordSinkWrite(sink string, records int, d time.Duration, err error)
}

// Instrumented wraps a sink and records every batch written.
type Instrumented struct {
	inner   Sink
	name    string
	metrics MetricsRecorder
}

// NewInstrumented creates an instrumented wrapper around inner.
func NewInstrumented(inner Sink, name string, metrics MetricsRecorder) *Instrumented {
	return &Instrumented{inner: inner, name: name, metrics: metrics}
}

// Write delegates to the inner sink and records the outcome.
func (s *Instrumented) Write(ctx context.Context, records []Record) error {
	start := time.Now()
	err := s.inner.Write(ctx, records)
	if s.metrics != nil {
		s.metrics.RecordSinkWrite(s.name, len(records), time.Since(start), err)
	}
	return err
}

// DeletePath delegates when the inner sink supports deletion.
func (s *Instrumented) DeletePath(ctx context.Context, path string) error {
	if d, ok := s.inner.(Deleter); ok {
		return d.DeletePath(ctx, path)
	}
	return nil
}

// Close closes the inner sink.
func (s *Instrumented) Close() error {
	return s.inner.Close()
}
