package brokermessage

import (
	"context"
	"fmt"
	"sync"

	"room-service/internal/kitchenfeed/app/core"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	cfg      *config.RabbitMQ
	conn     *amqp.Connection
	ch       *amqp.Channel
	mylog    logger.Logger
	prefetch int
	mu       sync.Mutex
}

// NewRabbitMQ connects and makes sure the feed queue is bound to the order
// events exchange.
func NewRabbitMQ(rabbitmqCfg *config.RabbitMQ, prefetch int, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		cfg:      rabbitmqCfg,
		mylog:    mylog,
		prefetch: prefetch,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRMQConn, err)
	}
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.cfg.User,
		r.cfg.Password,
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(r.cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}
	if err := ch.QueueBind(r.cfg.Queue, "", r.cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) Consume(ctx context.Context) (<-chan core.Message, error) {
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	deliveries, err := ch.ConsumeWithContext(ctx, r.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", r.cfg.Queue, err)
	}

	out := make(chan core.Message)
	go func() {
		defer close(out)
		for d := range deliveries {
			select {
			case out <- delivery{d: d}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type delivery struct {
	d amqp.Delivery
}

func (m delivery) Body() []byte            { return m.d.Body }
func (m delivery) Ack() error              { return m.d.Ack(false) }
func (m delivery) Nack(requeue bool) error { return m.d.Nack(false, requeue) }
