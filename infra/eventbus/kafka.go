package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/payproc/pkg/domain/events"
	"github.com/amirasaad/payproc/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID          string
	TopicPrefix      string
	DLQRetryInterval time.Duration
	DLQBatchSize     int
}

// DefaultKafkaEventBusConfig returns default configuration for
// KafkaEventBus.
func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return &KafkaEventBusConfig{
		GroupID:          "payproc",
		DLQRetryInterval: 5 * time.Minute,
		DLQBatchSize:     10,
	}
}

// messageWriter is the slice of kafka.Writer the bus uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus implements a Kafka-backed event bus. Messages are keyed by
// transaction id so the hash balancer keeps one transaction's events on
// one partition, and consumer offsets are committed only after the message
// is accounted for: either every handler succeeded, or the raw message was
// parked on the event type's DLQ topic for the retry worker to re-drive.
// The consumer never advances past an unacknowledged message, so a crash
// or a full DLQ pipeline causes redelivery, never silent loss.
type KafkaEventBus struct {
	brokers []string
	writer  messageWriter
	ctx     context.Context
	cancel  context.CancelFunc

	handlers    map[string][]eventbus.HandlerFunc
	handlersMtx sync.RWMutex

	readers    map[string]*kafka.Reader
	readersMtx sync.Mutex

	logger *slog.Logger
	config *KafkaEventBusConfig
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
// brokers: comma-separated broker list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if config == nil {
		config = DefaultKafkaEventBusConfig()
	}
	if config.GroupID == "" {
		config.GroupID = "payproc"
	}
	if config.DLQRetryInterval <= 0 {
		config.DLQRetryInterval = 5 * time.Minute
	}
	if config.DLQBatchSize <= 0 {
		config.DLQBatchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parsed...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers:  parsed,
		writer:   writer,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string][]eventbus.HandlerFunc),
		readers:  make(map[string]*kafka.Reader),
		logger:   logger.With("bus", "kafka"),
		config:   config,
	}
	bus.startDLQRetryWorker(ctx)

	logger.Info("🚀 Kafka event bus initialized",
		"group_id", config.GroupID,
		"brokers", parsed,
		"dlq_retry_interval", config.DLQRetryInterval,
		"dlq_batch_size", config.DLQBatchSize,
	)
	return bus, nil
}

// Register implements eventbus.Bus. The first registration for an event
// type starts a consumer for its topic.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.handlersMtx.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlersMtx.Unlock()

	b.ensureConsumer(eventType)
}

// Emit implements eventbus.Bus.
func (b *KafkaEventBus) Emit(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka event bus: marshal failed: %w", err)
	}
	envBytes, err := json.Marshal(envelope{Type: e.Type(), Payload: payload})
	if err != nil {
		return fmt.Errorf("kafka event bus: envelope marshal failed: %w", err)
	}

	msg := kafka.Message{
		Topic: b.topicFor(e.Type()),
		Key:   []byte(e.Aggregate()),
		Value: envBytes,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Close stops consumers and closes the writer.
func (b *KafkaEventBus) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}

func (b *KafkaEventBus) topicFor(eventType string) string {
	topic := events.TopicFor(eventType)
	if b.config.TopicPrefix != "" {
		return b.config.TopicPrefix + "." + topic
	}
	return topic
}

func (b *KafkaEventBus) dlqTopicFor(eventType string) string {
	return b.topicFor(eventType) + ".dlq"
}

func (b *KafkaEventBus) ensureConsumer(eventType string) {
	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()
	if _, exists := b.readers[eventType]; exists {
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID,
		Topic:       b.topicFor(eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(b.ctx, eventType, reader)
	}()
}

// consumeLoop fetches one message at a time and retries it in place until
// it is accounted for. The reader's in-memory position advances on every
// fetch regardless of commits, so moving to the next message before this
// one is handled or parked would lose it for the life of the session.
func (b *KafkaEventBus) consumeLoop(ctx context.Context, eventType string, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for {
			commit, perr := b.processMessage(ctx, eventType, msg)
			if commit {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					b.logger.Error("kafka commit error",
						"error", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
				}
				break
			}
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka message processing failed, retrying in place",
				"error", perr, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processMessage decodes and dispatches one message. It returns true when
// the offset may be committed: every handler succeeded, the message is
// malformed beyond retry (poison messages are committed after logging
// rather than blocking the partition), or a handler failed and the raw
// message was parked on the DLQ topic. A failed DLQ publish returns false
// so the caller retries the same message instead of advancing.
func (b *KafkaEventBus) processMessage(ctx context.Context, expectedType string, msg kafka.Message) (bool, error) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		b.logger.Error("failed to unmarshal envelope", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		return true, nil
	}
	if env.Type != expectedType {
		b.logger.Warn("envelope type mismatch for topic",
			"expected", expectedType, "actual", env.Type, "topic", msg.Topic)
	}

	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		b.logger.Error("unknown event type", "type", env.Type, "topic", msg.Topic, "offset", msg.Offset)
		return true, nil
	}
	e := constructor()
	if err := json.Unmarshal(env.Payload, e); err != nil {
		b.logger.Error("failed to unmarshal event payload",
			"error", err, "event_type", env.Type, "topic", msg.Topic, "offset", msg.Offset)
		return true, nil
	}

	b.handlersMtx.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[env.Type]...)
	b.handlersMtx.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			b.logger.Error("event handler failed, parking message on DLQ",
				"event_type", env.Type,
				"transaction_id", e.Aggregate(),
				"offset", msg.Offset,
				"error", err,
			)
			if dlqErr := b.publishToDLQ(ctx, env.Type, msg); dlqErr != nil {
				return false, dlqErr
			}
			return true, nil
		}
	}
	return true, nil
}

// publishToDLQ parks the raw message, keeping its original key so the
// retry worker's republish lands on the same partition as the original.
func (b *KafkaEventBus) publishToDLQ(ctx context.Context, eventType string, msg kafka.Message) error {
	dlqTopic := b.dlqTopicFor(eventType)
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: dlqTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka event bus: dlq publish failed: %w", err)
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", dlqTopic)
	return nil
}

// startDLQRetryWorker periodically re-drives parked messages back onto
// their original topics in bounded batches.
func (b *KafkaEventBus) startDLQRetryWorker(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.config.DLQRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.processAllDLQs(ctx)
			}
		}
	}()
}

func (b *KafkaEventBus) processAllDLQs(ctx context.Context) {
	b.handlersMtx.RLock()
	eventTypes := make([]string, 0, len(b.handlers))
	for eventType := range b.handlers {
		eventTypes = append(eventTypes, eventType)
	}
	b.handlersMtx.RUnlock()

	for _, eventType := range eventTypes {
		b.retryDLQ(ctx, eventType, b.config.DLQBatchSize)
	}
}

func (b *KafkaEventBus) retryDLQ(ctx context.Context, eventType string, batchSize int) {
	dlqReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID + "-dlq-retry",
		Topic:       b.dlqTopicFor(eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     250 * time.Millisecond,
	})
	defer func() { _ = dlqReader.Close() }()

	for i := 0; i < batchSize; i++ {
		msgCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		msg, err := dlqReader.FetchMessage(msgCtx)
		cancel()
		if err != nil {
			return
		}

		err = b.writer.WriteMessages(ctx, kafka.Message{
			Topic: b.topicFor(eventType),
			Key:   msg.Key,
			Value: msg.Value,
			Time:  time.Now(),
		})
		if err != nil {
			b.logger.Error("failed to republish DLQ message",
				"error", err, "event_type", eventType, "offset", msg.Offset)
			return
		}
		if err := dlqReader.CommitMessages(ctx, msg); err != nil {
			b.logger.Error("kafka dlq commit error", "error", err, "event_type", eventType, "offset", msg.Offset)
			return
		}
		b.logger.Info("re-drove DLQ message", "event_type", eventType, "topic", b.topicFor(eventType))
	}
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
