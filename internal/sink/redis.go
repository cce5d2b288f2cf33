package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// RedisSink appends records to a Redis stream and keeps a per-path set of
// entry IDs so a file's chunks can be removed again.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink connects to url and verifies the connection.
func NewRedisSink(url, stream string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	return NewRedisSinkWithClient(client, stream), nil
}

// NewRedisSinkWithClient wraps an existing client.
func NewRedisSinkWithClient(client *redis.Client, stream string) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: 1_000_000}
}

func (s *RedisSink) pathKey(path string) string {
	return s.stream + ":path:" + path
}

// Write adds every record in one pipeline round trip.
func (s *RedisSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	adds := make([]*redis.StringCmd, len(records))
	for i := range records {
		r := &records[i]
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, "failed to marshal metadata", err)
		}
		adds[i] = pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]any{
				"id":          r.ID,
				"document_id": r.DocumentID,
				"path":        r.Path,
				"language":    r.Language,
				"chunk_index": r.Index,
				"content":     r.Content,
				"start_line":  r.StartLine,
				"end_line":    r.EndLine,
				"oversized":   r.Oversized,
				"metadata":    string(meta),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.CodeSinkError, "failed to add records to redis stream", err)
	}

	// Remember entry IDs per path for DeletePath.
	pipe = s.client.Pipeline()
	for i, cmd := range adds {
		pipe.SAdd(ctx, s.pathKey(records[i].Path), cmd.Val())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.CodeSinkError, "failed to index redis stream entries", err)
	}
	return nil
}

// DeletePath removes the stream entries previously written for path.
func (s *RedisSink) DeletePath(ctx context.Context, path string) error {
	key := s.pathKey(path)
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return errors.Wrap(errors.CodeSinkError, fmt.Sprintf("failed to list entries of %s", path), err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.XDel(ctx, s.stream, ids...)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.CodeSinkError, fmt.Sprintf("failed to delete entries of %s", path), err)
	}
	return nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
