package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var ErrQueueFull = errors.New("content event queue full, event dropped")

// messageWriter is the subset of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes content events through a buffered channel drained
// by a fixed worker pool
type KafkaProducer struct {
	writer       messageWriter
	topic        string
	events       chan ContentEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewKafkaProducer creates a producer for topic on broker and starts its workers
func NewKafkaProducer(broker, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
	return newKafkaProducer(writer, topic, 1000, 4)
}

func newKafkaProducer(writer messageWriter, topic string, buffer, workers int) *KafkaProducer {
	kp := &KafkaProducer{
		writer:       writer,
		topic:        topic,
		events:       make(chan ContentEvent, buffer),
		workerCount:  workers,
		shutdownChan: make(chan struct{}),
	}
	kp.startWorkers()
	return kp
}

func (kp *KafkaProducer) startWorkers() {
	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(i)
	}
	logrus.Infof("[Kafka] Started %d content event workers for topic %s", kp.workerCount, kp.topic)
}

func (kp *KafkaProducer) worker(id int) {
	defer kp.wg.Done()

	for {
		select {
		case event := <-kp.events:
			kp.send(id, event)
		case <-kp.shutdownChan:
			// drain what is already queued before exiting
			for {
				select {
				case event := <-kp.events:
					kp.send(id, event)
				default:
					return
				}
			}
		}
	}
}

func (kp *KafkaProducer) send(workerID int, event ContentEvent) {
	if err := kp.sendSync(event); err != nil {
		metrics.ContentEventsTotal.WithLabelValues(event.Entity, "failed").Inc()
		logrus.WithFields(logrus.Fields{
			"worker":   workerID,
			"event_id": event.ID,
			"entity":   event.Entity,
		}).WithError(err).Error("[Kafka] Failed to send content event")
		return
	}
	metrics.ContentEventsTotal.WithLabelValues(event.Entity, "sent").Inc()
}

// Publish queues event without blocking; a full queue drops it
func (kp *KafkaProducer) Publish(event ContentEvent) error {
	select {
	case kp.events <- event:
		return nil
	default:
		metrics.ContentEventsTotal.WithLabelValues(event.Entity, "dropped").Inc()
		return ErrQueueFull
	}
}

func (kp *KafkaProducer) sendSync(event ContentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal content event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ClientID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "entity", Value: []byte(event.Entity)},
			{Key: "client_id", Value: []byte(event.ClientID.String())},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write content event to Kafka: %w", err)
	}
	return nil
}

// Close stops the workers after the queue drains and closes the writer
func (kp *KafkaProducer) Close() error {
	var err error
	kp.closeOnce.Do(func() {
		logrus.Info("[Kafka] Initiating graceful shutdown...")
		close(kp.shutdownChan)
		kp.wg.Wait()
		if cerr := kp.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
		}
	})
	return err
}
