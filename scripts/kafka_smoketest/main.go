package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/amirasaad/payproc/pkg/domain/events"
)

// RunSmokeTest produces and consumes one message on every workflow topic
// to verify Kafka cluster functionality locally.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = "payproc-smoketest"
	}

	var topics []string
	for _, topic := range events.Topics {
		topics = append(topics, topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Create topics if they don't exist
	{
		dialer := &kafka.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", strings.Split(brokers, ",")[0])
		if err != nil {
			logger.Error("dial failed", "error", err)
			return err
		}
		defer func() { _ = conn.Close() }()
		for _, t := range topics {
			err = conn.CreateTopics(kafka.TopicConfig{
				Topic:             t,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
			if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
				logger.Error("create topic failed", "topic", t, "error", err)
				return err
			}
			logger.Info("topic ready", "topic", t)
		}
	}

	// Produce one enveloped message per topic, keyed like the bus does
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	defer func() { _ = w.Close() }()

	for eventType, topic := range events.Topics {
		value, err := json.Marshal(map[string]any{
			"type":    eventType,
			"payload": map[string]string{"transactionId": "TXN-smoketest"},
		})
		if err != nil {
			return err
		}
		err = w.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte("TXN-smoketest"),
			Value: value,
			Time:  time.Now(),
		})
		if err != nil {
			logger.Error("write failed", "topic", topic, "error", err)
			return err
		}
		logger.Info("produced", "topic", topic, "event_type", eventType)
	}

	// Consume them back
	for _, t := range topics {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     strings.Split(brokers, ","),
			GroupID:     groupID,
			Topic:       t,
			StartOffset: kafka.FirstOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
		})
		defer func(rd *kafka.Reader) { _ = rd.Close() }(r)

		readCtx, cancelRead := context.WithTimeout(ctx, 10*time.Second)
		defer cancelRead()

		msg, err := r.FetchMessage(readCtx)
		if err != nil {
			logger.Error("fetch failed", "topic", t, "error", err)
			return err
		}
		logger.Info("consumed", "topic", t, "value", string(msg.Value))
		_ = r.CommitMessages(ctx, msg)
	}

	logger.Info("kafka smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
