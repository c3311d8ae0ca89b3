package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/events"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/revalidate"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deliverer posts an encoded notification
type deliverer interface {
	Deliver(ctx context.Context, payload []byte) error
}

const (
	defaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// KafkaConsumer turns content events into revalidation webhooks
type KafkaConsumer struct {
	reader  messageReader
	db      *gorm.DB
	webhook deliverer

	// retryDelay is the first pause before a failed message is handled again
	retryDelay time.Duration
}

// NewKafkaConsumer creates a consumer-group reader on topic
func NewKafkaConsumer(broker, topic string, db *gorm.DB, webhook deliverer) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        "revalidator",
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return &KafkaConsumer{reader: reader, db: db, webhook: webhook, retryDelay: defaultRetryDelay}
}

// Run consumes until ctx is cancelled. A message is committed once it was
// delivered or recorded for retry; the next message is not fetched before
// that, since committing a later offset would skip it.
func (kc *KafkaConsumer) Run(ctx context.Context) {
	logrus.Info("Starting content events consumer...")

	for {
		msg, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("Error reading content event")
			time.Sleep(time.Second)
			continue
		}

		if !kc.handleUntilDone(ctx, msg) {
			return
		}
		if err := kc.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("Failed to commit content event")
		}
	}
}

// handleUntilDone retries msg with exponential backoff until it is handled.
// It returns false when ctx is cancelled first.
func (kc *KafkaConsumer) handleUntilDone(ctx context.Context, msg kafka.Message) bool {
	delay := kc.retryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	for attempt := 1; ; attempt++ {
		err := kc.handle(ctx, msg)
		if err == nil {
			return true
		}
		logrus.WithFields(logrus.Fields{
			"offset":    msg.Offset,
			"partition": msg.Partition,
			"attempt":   attempt,
			"retry_in":  delay,
		}).WithError(err).Error("Content event not handled")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (kc *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var event events.ContentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// a malformed message can never succeed; skip it
		logrus.WithError(err).Warn("Dropping malformed content event")
		return nil
	}

	n := revalidate.NewNotification(event, kc.clientSlug(ctx, event))
	payload, err := revalidate.Encode(n)
	if err != nil {
		return err
	}

	fields := logrus.Fields{"event_id": event.ID, "entity": event.Entity, "client_id": event.ClientID}
	deliverErr := kc.webhook.Deliver(ctx, payload)
	if deliverErr == nil {
		logrus.WithFields(fields).Debug("Revalidation delivered")
		return nil
	}

	logrus.WithFields(fields).WithError(deliverErr).Warn("Revalidation failed, storing for retry")
	if err := revalidate.RecordFailure(ctx, kc.db, n, payload, deliverErr); err != nil {
		return fmt.Errorf("%w (delivery: %v)", err, deliverErr)
	}
	return nil
}

// clientSlug looks up the slug the public site routes by; deleted clients
// are still found so their pages can be rebuilt
func (kc *KafkaConsumer) clientSlug(ctx context.Context, event events.ContentEvent) string {
	var client models.Client
	err := kc.db.WithContext(ctx).Unscoped().Select("slug").First(&client, "id = ?", event.ClientID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("client_id", event.ClientID).WithError(err).Warn("Client lookup failed")
		}
		return ""
	}
	return client.Slug
}

// Close closes the Kafka reader
func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close content events reader: %w", err)
	}
	return nil
}
