package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeInternal, "consumer closed")
)

// Handler processes one consumed message. A nil return commits the offset;
// an error triggers the retry and dead-letter policy.
type Handler func(ctx context.Context, msg kafka.Message) error

// ConsumerMetrics holds cumulative consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed atomic.Int64
	MessagesFailed   atomic.Int64
	MessagesDead     atomic.Int64
	Lag              atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group, retries failed handlers with
// backoff, and routes exhausted messages to a dead-letter topic before
// committing so the partition keeps moving.
type Consumer struct {
	reader       ReaderInterface
	handler      Handler
	dlq          *Producer
	dlqTopic     string
	maxRetries   int
	retryBackoff time.Duration
	logger       logging.Logger
	metrics      ConsumerMetrics

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ConsumerOption adjusts optional consumer behavior.
type ConsumerOption func(*Consumer)

// WithDeadLetter routes messages that exhaust retries to topic via producer.
// Without it exhausted messages are logged and committed.
func WithDeadLetter(producer *Producer, topic string) ConsumerOption {
	return func(c *Consumer) {
		c.dlq = producer
		c.dlqTopic = topic
	}
}

// NewConsumer builds a consumer for topic from the service configuration.
func NewConsumer(kcfg config.KafkaConfig, wcfg config.WorkerConfig, topic string, handler Handler, log logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if len(kcfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers not configured")
	}
	if kcfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group id is required")
	}
	if handler == nil {
		return nil, errors.New(errors.ErrCodeValidation, "handler is required")
	}
	startOffset := kafka.LastOffset
	if kcfg.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kcfg.Brokers,
		GroupID:        kcfg.GroupID,
		Topic:          topic,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: 0, // explicit commits only
		MaxWait:        500 * time.Millisecond,
	})
	c := newConsumerWithReader(reader, wcfg, handler, log, opts...)
	return c, nil
}

// NewConsumerWithReader wires a custom reader, used by tests.
func NewConsumerWithReader(r ReaderInterface, wcfg config.WorkerConfig, handler Handler, log logging.Logger, opts ...ConsumerOption) *Consumer {
	return newConsumerWithReader(r, wcfg, handler, log, opts...)
}

func newConsumerWithReader(r ReaderInterface, wcfg config.WorkerConfig, handler Handler, log logging.Logger, opts ...ConsumerOption) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	maxRetries := wcfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := wcfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	c := &Consumer{
		reader:       r,
		handler:      handler,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		logger:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the consume loop. It returns immediately; processing runs
// until Close or the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(runCtx)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Consumer fetch failed", logging.Err(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		c.metrics.Lag.Store(msg.HighWaterMark - msg.Offset)
		c.processMessage(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("Consumer commit failed",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
	}
}

// processMessage runs the handler with retries. The message is always
// committed by the caller; permanently failed messages go to the dead-letter
// topic when one is configured.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff * time.Duration(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
		}
		if err = c.handler(ctx, msg); err == nil {
			c.metrics.MessagesConsumed.Add(1)
			return
		}
		c.logger.Warn("Consumer handler failed",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Int("attempt", attempt+1),
			logging.Err(err))
	}
	c.metrics.MessagesFailed.Add(1)
	c.deadLetter(ctx, msg, err)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil || c.dlqTopic == "" {
		c.logger.Error("Dropping message after retries, no dead-letter topic",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(cause))
		return
	}
	dead := kafka.Message{
		Topic: c.dlqTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "dlq_source_topic", Value: []byte(msg.Topic)},
			kafka.Header{Key: "dlq_error", Value: []byte(cause.Error())},
		),
	}
	if err := c.dlq.writer.WriteMessages(ctx, dead); err != nil {
		c.logger.Error("Dead-letter publish failed",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return
	}
	c.metrics.MessagesDead.Add(1)
	c.logger.Warn("Message routed to dead-letter topic",
		logging.String("source_topic", msg.Topic),
		logging.String("dlq_topic", c.dlqTopic),
		logging.Int64("offset", msg.Offset))
}

// Metrics exposes the consumer counters.
func (c *Consumer) Metrics() *ConsumerMetrics { return &c.metrics }

// Close stops the consume loop and closes the reader. Idempotent.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if err := c.reader.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to close kafka reader")
	}
	return nil
}
