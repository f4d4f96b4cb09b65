package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clearwave-ledger/internal/config"
)

// KafkaWriter wraps kafka.Writer methods for testing.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes audit events to the audit topic.
type Producer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewProducer creates the audit producer and ensures the topic exists.
func NewProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*Producer, error) {
	if cfg.AuditTopic == "" {
		return nil, fmt.Errorf("kafka audit topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for audit producer: %w", err)
	}
	defer conn.Close()

	if err := createTopicIfNotExists(conn, cfg.AuditTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure audit topic %s exists: %w", cfg.AuditTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // audit must never block the request path
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write audit messages asynchronously", "topic", cfg.AuditTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &Producer{
		logger: logger,
		writer: writer,
		topic:  cfg.AuditTopic,
	}, nil
}

// Publish writes a single audit event, keyed by the event kind plus the
// primary id so related events stay on one partition.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := string(event.Kind)
	switch {
	case event.AccountID != "":
		key = event.AccountID
	case event.EntryID != "":
		key = event.EntryID
	case event.TransferID != "":
		key = event.TransferID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish audit event",
			"topic", p.topic,
			"kind", event.Kind,
			"error", err,
		)
		return fmt.Errorf("failed to publish audit event to %s: %w", p.topic, err)
	}

	return nil
}

// Close shuts down the underlying Kafka writer.
func (p *Producer) Close() error {
	p.logger.Info("Closing audit Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close audit kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

// createTopicIfNotExists creates the Kafka topic if not found, retrying on
// partition read errors.
func createTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < 5; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName)
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if topicConfig.NumPartitions == 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor == 0 {
		topicConfig.ReplicationFactor = 1
	}

	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	log.Info("Created Kafka topic", "topic", topicName)
	return nil
}
