package brokermessage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	"github.com/gammazero/deque"
)

var ErrBacklogged = errors.New("event queued behind undelivered events")

// Pending keeps events the broker refused and re-sends them, oldest first,
// before the next event goes out. When full the oldest event is dropped.
type Pending struct {
	next  core.IPublisher
	max   int
	mylog logger.Logger

	mu  sync.Mutex
	buf deque.Deque[dto.OrderEvent]
}

func NewPending(next core.IPublisher, maxLen int, mylog logger.Logger) *Pending {
	return &Pending{
		next:  next,
		max:   maxLen,
		mylog: mylog,
	}
}

func (p *Pending) Publish(ctx context.Context, event dto.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.flush(ctx); err != nil {
		p.push(event)
		return fmt.Errorf("%w: %w", ErrBacklogged, err)
	}

	if err := p.next.Publish(ctx, event); err != nil {
		p.push(event)
		return err
	}
	return nil
}

// Len reports how many events wait for delivery.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Len()
}

func (p *Pending) Close() error {
	p.mu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := p.flush(ctx); err != nil {
		p.mylog.Action("pending_events_lost").Error("Undelivered events dropped on shutdown", err, "count", p.buf.Len())
	}
	cancel()
	p.mu.Unlock()

	return p.next.Close()
}

// flush re-sends buffered events and stops at the first failure.
func (p *Pending) flush(ctx context.Context) error {
	for p.buf.Len() > 0 {
		if err := p.next.Publish(ctx, p.buf.Front()); err != nil {
			return err
		}
		p.buf.PopFront()
	}
	return nil
}

func (p *Pending) push(event dto.OrderEvent) {
	if p.max <= 0 {
		return
	}
	if p.buf.Len() >= p.max {
		dropped := p.buf.PopFront()
		p.mylog.Action("pending_event_dropped").Warn("Pending events buffer is full", "order_no", dropped.OrderNumber, "type", dropped.Type)
	}
	p.buf.PushBack(event)
}

// Noop accepts every event and sends it nowhere.
type Noop struct{}

func (Noop) Publish(context.Context, dto.OrderEvent) error { return nil }
func (Noop) Close() error                                  { return nil }

// New builds the publisher selected by events.driver.
func New(ctx context.Context, cfg *config.Config, mylog logger.Logger) (core.IPublisher, error) {
	var next core.IPublisher
	switch cfg.Events.Driver {
	case "rabbitmq":
		r, err := NewRabbitMQ(ctx, cfg.RMQ, mylog)
		if err != nil {
			return nil, err
		}
		next = r
	case "kafka":
		next = NewKafka(cfg.Kafka)
	default:
		return Noop{}, nil
	}
	return NewPending(next, cfg.Events.PendingSize, mylog), nil
}
