// Package events mirrors realtime chat events onto a Kafka topic for
// downstream consumers (notifications, analytics). Delivery is
// at-most-once: failures are logged and dropped, the store stays the
// source of truth.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w, log: log}
}

// publishTimeout bounds a single mirror write so unreachable brokers
// cannot stall the caller. The store stays the source of truth.
const publishTimeout = 2 * time.Second

// Publish writes one event keyed by conversation so per-conversation
// ordering survives partitioning.
func (p *Publisher) Publish(ctx context.Context, key, event string, payload any) {
	if p == nil || p.writer == nil {
		return
	}
	value, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	if err != nil {
		p.log.Warnw("marshal event", "event", event, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg := kafka.Message{Key: []byte(key), Value: value, Time: time.Now()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warnw("publish event", "event", event, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
