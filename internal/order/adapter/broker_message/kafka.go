package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/config"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes order events to a topic, keyed by order number so every
// event of one order lands on the same partition.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(cfg *config.Kafka) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event dto.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: body,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s to kafka: %w", event.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
