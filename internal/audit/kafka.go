package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes audit entries as JSON to a Kafka topic, keyed by room
// so a room's attempts stay ordered within one partition.
type KafkaSink struct {
	w     messageWriter
	topic string
}

// NewKafkaSink creates a sink writing to topic on the comma separated brokers.
// Writes are asynchronous so an unreachable broker never delays a completion
// attempt; delivery failures are logged when the batch completes.
func NewKafkaSink(brokers, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   logFailedBatch(topic),
	}
	return &KafkaSink{w: w, topic: topic}
}

func logFailedBatch(topic string) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err != nil {
			slog.Warn("Audit entries not delivered to Kafka", "topic", topic, "count", len(msgs), "error", err)
		}
	}
}

// Log implements Logger.
func (s *KafkaSink) Log(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(e.RoomID),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
		Time:    e.CreatedAt,
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish audit entry to %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes pending asynchronous writes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
