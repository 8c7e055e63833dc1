// Package publish fans a generated dataset out to a Kafka topic, one message
// per event keyed by door.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/metrics"
)

const defaultBatchSize = 500

// Publisher sends events through a synchronous producer.
type Publisher struct {
	producer  sarama.SyncProducer
	topic     string
	batchSize int
}

// New wraps an existing producer.
func New(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic, batchSize: defaultBatchSize}
}

// Connect dials brokers and returns a Publisher for topic.
func Connect(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	slog.Info("kafka producer connected", "brokers", brokers, "topic", topic)
	return New(producer, topic), nil
}

// Topic is the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Publish sends events in batches and returns how many were acknowledged.
// ctx is checked between batches.
func (p *Publisher) Publish(ctx context.Context, datasetID string, events []event.Event) (int, error) {
	sent := 0
	for start := 0; start < len(events); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		end := min(start+p.batchSize, len(events))
		msgs := make([]*sarama.ProducerMessage, 0, end-start)
		for i := start; i < end; i++ {
			value, err := json.Marshal(events[i])
			if err != nil {
				return sent, fmt.Errorf("encode event %s: %w", events[i].ID, err)
			}
			msgs = append(msgs, &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(events[i].DoorID),
				Value: sarama.ByteEncoder(value),
				Headers: []sarama.RecordHeader{
					{Key: []byte("dataset_id"), Value: []byte(datasetID)},
					{Key: []byte("category"), Value: []byte(events[i].Category())},
				},
			})
		}
		if err := p.producer.SendMessages(msgs); err != nil {
			metrics.EventsPublished.WithLabelValues("error").Add(float64(len(msgs)))
			return sent, fmt.Errorf("publish dataset %s to %s: %w", datasetID, p.topic, err)
		}
		sent += len(msgs)
		metrics.EventsPublished.WithLabelValues("success").Add(float64(len(msgs)))
	}
	return sent, nil
}

// Close shuts the producer down.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
