package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tourist-safety-service/internal/config"
	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements notify.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return NewTopicWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
}

// NewTopicWriter creates a Kafka producer for an arbitrary topic.
func NewTopicWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and publishes notifications in a single WriteMessages
// call. Messages are keyed by alert id so one alert's notifications land on
// one partition in order. On a partial failure the number of accepted
// messages is returned with the error.
func (w *Writer) Publish(ctx context.Context, notifications ...domain.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	msgs := make([]kafkago.Message, len(notifications))
	for i := range notifications {
		msg, err := serializeNotification(notifications[i])
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}

	err := w.writer.WriteMessages(ctx, msgs...)
	if err == nil {
		return len(msgs), nil
	}
	var writeErrs kafkago.WriteErrors
	if errors.As(err, &writeErrs) {
		accepted := len(msgs) - writeErrs.Count()
		w.logger.Warn("partial notification publish", "accepted", accepted, "failed", writeErrs.Count())
		return accepted, err
	}
	return 0, err
}

// WriteJSON publishes v as a single JSON message under key.
func (w *Writer) WriteJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	return w.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: data})
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeNotification marshals a Notification into a Kafka message.
func serializeNotification(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.AlertID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_type", Value: []byte(n.AlertType)},
			{Key: "channel", Value: []byte(n.Channel)},
			{Key: "created_at", Value: []byte(n.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
