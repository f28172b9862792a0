package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectInterval = 5 * time.Second

// RabbitMQ publishes order events to a fanout exchange with publisher confirms.
type RabbitMQ struct {
	ctx          context.Context
	cfg          *config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	mylog        logger.Logger
	reconnecting bool
	mu           sync.Mutex
}

func NewRabbitMQ(ctx context.Context, rabbitmqCfg *config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRMQConn, err)
	}
	return r, nil
}

// connect dials the broker, opens a confirm channel and declares the exchange.
func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(URL(r.cfg))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(r.cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return core.ErrRMQConn
	}
	if r.ch == nil || r.ch.IsClosed() {
		return fmt.Errorf("%w: channel closed", core.ErrRMQConn)
	}
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

func (r *RabbitMQ) Publish(ctx context.Context, event dto.OrderEvent) error {
	if err := r.IsAlive(); err != nil {
		r.mylog.Action("publish").Error("connection to rabbitmq is closed", err)
		go r.reconnect(r.ctx)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, r.cfg.Exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OrderID + "/" + event.Timestamp.Format(time.RFC3339Nano),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm %s: %w", event.Type, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s for %s", event.Type, event.OrderNumber)
	}
	return nil
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnectInterval)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err != nil {
				log.Warn("rabbitmq failed to reconnect", "reason", err.Error())
				continue
			}
			log.Info("rabbitmq reconnected")
			return
		case <-ctx.Done():
			return
		}
	}
}

// URL builds the amqp connection string from config.
func URL(cfg *config.RabbitMQ) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.VHost,
	)
}
