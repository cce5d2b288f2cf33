package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/ricesearch/rice-chunker/internal/config"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/logger"
)

// New creates the sink selected by the configuration, wrapped for logging
// and, when configured, rate limiting. The jsonl sink writes to stdout when
// no path is set.
func New(cfg *config.Config, stdout io.Writer, log *logger.Logger) (Sink, error) {
	var (
		s   Sink
		err error
	)

	switch strings.ToLower(cfg.Sink.Type) {
	case "jsonl", "":
		if cfg.Sink.Path == "" || cfg.Sink.Path == "-" {
			s = NewJSONLSink(stdout)
		} else {
			s, err = OpenJSONLFile(cfg.Sink.Path)
		}

	case "memory":
		s = NewMemorySink()

	case "kafka":
		s, err = NewKafkaSink(KafkaConfig{
			Brokers: cfg.KafkaBrokers(),
			Topic:   cfg.Sink.KafkaTopic,
		})

	case "redis":
		s, err = NewRedisSink(cfg.Sink.RedisURL, cfg.Sink.RedisStream)

	case "sqlite":
		s, err = OpenSQLite(cfg.Sink.Path)

	case "bleve":
		s, err = OpenBleve(cfg.Sink.Path)

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown sink type: %s", cfg.Sink.Type))
	}
	if err != nil {
		return nil, err
	}

	if cfg.Sink.RateLimit > 0 {
		s = NewRateLimited(s, cfg.Sink.RateLimit)
	}
	return NewLogged(s, cfg.Sink.Type, log), nil
}
