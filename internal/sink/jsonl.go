package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// JSONLSink writes one JSON object per record.
type JSONLSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLSink writes to w. The caller keeps ownership of w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	return &JSONLSink{w: bw, enc: json.NewEncoder(bw)}
}

// OpenJSONLFile creates (or truncates) path and writes records to it.
func OpenJSONLFile(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.SinkError("failed to create jsonl file", err)
	}
	s := NewJSONLSink(f)
	s.closer = f
	return s, nil
}

// Write encodes records and flushes them.
func (s *JSONLSink) Write(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(&records[i]); err != nil {
			return errors.SinkError("failed to encode record", err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return errors.SinkError("failed to flush records", err)
	}
	return nil
}

// Close flushes buffered output and closes the file, if the sink owns one.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		return errors.SinkError("failed to flush records", err)
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
