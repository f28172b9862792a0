package brokermessage

import (
	"context"
	"errors"
	"fmt"

	"room-service/internal/kitchenfeed/app/core"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	"github.com/segmentio/kafka-go"
)

// Kafka reads order events as a member of a consumer group. Offsets are
// committed on ack; kafka has no per-message reject, so a nack without
// requeue commits too and a requeued message is read again after restart.
type Kafka struct {
	r     *kafka.Reader
	mylog logger.Logger
}

func NewKafka(cfg *config.Kafka, mylog logger.Logger) *Kafka {
	return &Kafka{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
		mylog: mylog,
	}
}

func (k *Kafka) Consume(ctx context.Context) (<-chan core.Message, error) {
	out := make(chan core.Message)
	go func() {
		defer close(out)
		for {
			msg, err := k.r.FetchMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					k.mylog.Action("kafka_fetch_failed").Error("Error reading Kafka", err)
				}
				return
			}
			select {
			case out <- kafkaMessage{ctx: ctx, r: k.r, msg: msg}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (k *Kafka) Close() error {
	if err := k.r.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}

type kafkaMessage struct {
	ctx context.Context
	r   *kafka.Reader
	msg kafka.Message
}

func (m kafkaMessage) Body() []byte { return m.msg.Value }

func (m kafkaMessage) Ack() error {
	return m.r.CommitMessages(m.ctx, m.msg)
}

func (m kafkaMessage) Nack(requeue bool) error {
	if requeue {
		return nil
	}
	return m.r.CommitMessages(m.ctx, m.msg)
}
