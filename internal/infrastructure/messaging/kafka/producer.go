package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")
	ErrPublishFailed  = errors.New(errors.ErrCodeExternalService, "publish failed")
)

// ProducerMetrics holds cumulative producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
	LastSentAt     atomic.Value // time.Time
	AvgLatencyMs   atomic.Int64
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes. It is safe for concurrent use.
type Producer struct {
	writer  WriterInterface
	source  string
	logger  logging.Logger
	metrics ProducerMetrics
	closed  atomic.Bool
}

// NewProducer builds a producer from the service configuration. source names
// the publishing service and is stamped into every envelope.
func NewProducer(cfg config.KafkaConfig, source string, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers not configured")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.ProducerRetries + 1,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           50 * time.Millisecond,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}
	return &Producer{writer: writer, source: source, logger: log}, nil
}

// NewProducerWithWriter wires a custom writer, used by tests.
func NewProducerWithWriter(w WriterInterface, source string, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: w, source: source, logger: log}
}

// Publish wraps payload in an envelope and writes it to topic. The key
// selects the partition; use the parse record ID so per-record events stay
// ordered.
func (p *Producer) Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	return p.PublishEnvelope(ctx, topic, key, env)
}

// PublishEnvelope writes an already built envelope.
func (p *Producer) PublishEnvelope(ctx context.Context, topic, key string, env *EventEnvelope) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.MessagesFailed.Add(1)
		p.logger.Error("Producer.Publish failed",
			logging.String("topic", topic),
			logging.String("event_type", env.EventType),
			logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish message")
	}
	p.recordSent(len(msg.Value), time.Since(start))
	p.logger.Debug("Producer.Publish",
		logging.String("topic", topic),
		logging.String("event_type", env.EventType),
		logging.String("event_id", env.EventID))
	return nil
}

func (p *Producer) recordSent(bytes int, latency time.Duration) {
	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(bytes))
	p.metrics.LastSentAt.Store(time.Now().UTC())
	p.metrics.AvgLatencyMs.Store(latency.Milliseconds())
}

// Metrics exposes the producer counters.
func (p *Producer) Metrics() *ProducerMetrics { return &p.metrics }

// Close flushes buffered messages and releases the writer. Idempotent.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to close kafka writer")
	}
	return nil
}
