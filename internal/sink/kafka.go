package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// KafkaSink publishes each record as one message, keyed by path so all
// chunks of a file land on the same partition in order.
type KafkaSink struct {
	topic    string
	producer sarama.SyncProducer
	client   sarama.Client

	mu     sync.RWMutex
	closed bool
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers  []string      // Kafka broker addresses
	Topic    string        // Destination topic
	ClientID string        // Client identifier
	Version  string        // Kafka version (e.g., "2.8.0")
	Timeout  time.Duration // Dial/read/write timeout (default: 10s)
}

// NewKafkaSink connects to the brokers and creates a synchronous producer.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New(errors.CodeValidation, "kafka topic cannot be empty")
	}

	// Set defaults
	if cfg.ClientID == "" {
		cfg.ClientID = "rice-chunker"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid kafka version", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	kafkaConfig.Net.DialTimeout = cfg.Timeout
	kafkaConfig.Net.ReadTimeout = cfg.Timeout
	kafkaConfig.Net.WriteTimeout = cfg.Timeout

	client, err := sarama.NewClient(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka client", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka producer", err)
	}

	s := NewKafkaSinkWithProducer(producer, cfg.Topic)
	s.client = client
	return s, nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{topic: topic, producer: producer}
}

// Write publishes the batch with a single SendMessages call.
func (s *KafkaSink) Write(ctx context.Context, records []Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.New(errors.CodeUnavailable, "sink is closed")
	}
	if len(records) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(records))
	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return errors.Wrap(errors.CodeInternal, "failed to marshal record", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(records[i].Path),
			Value: sarama.ByteEncoder(data),
			Headers: []sarama.RecordHeader{
				{Key: []byte("chunk_id"), Value: []byte(records[i].ID)},
				{Key: []byte("language"), Value: []byte(records[i].Language)},
			},
		})
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.producer.SendMessages(msgs); err != nil {
		return errors.Wrap(errors.CodeSinkError, "failed to publish to kafka", err)
	}
	return nil
}

// Close closes the producer and, if the sink created it, the client.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.producer.Close()
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
