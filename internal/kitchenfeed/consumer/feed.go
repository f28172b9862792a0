package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"room-service/internal/kitchenfeed/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/logger"
)

// Feed prints one kitchen ticket line per order event.
type Feed struct {
	source core.ISource
	out    io.Writer
	mylog  logger.Logger
	ctx    context.Context

	outMu sync.Mutex
	mu    sync.Mutex
	wg    sync.WaitGroup
}

func NewFeed(ctx context.Context, source core.ISource, out io.Writer, mylog logger.Logger) *Feed {
	return &Feed{
		ctx:    ctx,
		source: source,
		out:    out,
		mylog:  mylog,
	}
}

// Run consumes until the context is cancelled or the source closes.
func (f *Feed) Run() error {
	messages, err := f.source.Consume(f.ctx)
	if err != nil {
		return fmt.Errorf("failed to consume order events: %w", err)
	}
	f.mylog.Action("feed_started").Info("Listening for order events")

	f.work(messages)
	return nil
}

func (f *Feed) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mylog.Action("graceful_shutdown_started").Info("Shutting down")

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for handlers: %w", ctx.Err())
	}

	if err := f.source.Close(); err != nil {
		f.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
		return fmt.Errorf("mb close: %w", err)
	}

	f.mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return nil
}

func (f *Feed) work(messages <-chan core.Message) {
	for {
		select {
		case <-f.ctx.Done():
			f.mylog.Action("work_shutdown").Info("Stopping message consumption due to context cancel")
			return

		case msg, ok := <-messages:
			if !ok {
				return
			}
			f.wg.Add(1)
			go func(msg core.Message) {
				defer f.wg.Done()

				if err, requeue := f.processMsg(msg); err != nil {
					f.mylog.Action("process_msg").Error("Failed to process order event", err)
					if err := msg.Nack(requeue); err != nil {
						f.mylog.Action("nack").Error("Failed to nack", err)
					}
				}
			}(msg)
		}
	}
}

// processMsg reports whether a failed message should be requeued.
// Malformed messages never are.
func (f *Feed) processMsg(msg core.Message) (error, bool) {
	var event dto.OrderEvent
	if err := json.Unmarshal(msg.Body(), &event); err != nil {
		return fmt.Errorf("unmarshal message: %w", err), false
	}
	if event.OrderNumber == "" || event.Type == "" {
		return errors.New("event without type or order number"), false
	}

	log := f.mylog.WithGroup("details").With("order_no", event.OrderNumber, "type", event.Type)
	log.Action("event_received").Info("Received order event")

	f.outMu.Lock()
	_, err := fmt.Fprintln(f.out, Ticket(event))
	f.outMu.Unlock()
	if err != nil {
		return fmt.Errorf("write ticket: %w", err), true
	}

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("acknowledge message: %w", err), true
	}
	return nil, false
}

// Ticket renders an event as a single line for the kitchen display.
func Ticket(e dto.OrderEvent) string {
	switch e.Type {
	case dto.EventOrderCreated:
		return fmt.Sprintf("[NEW] %s room %s (%s): %d items, total %d", e.OrderNumber, e.RoomNo, e.GuestName, e.ItemCount, e.Total)
	case dto.EventItemsAdded:
		return fmt.Sprintf("[ADD] %s room %s: %s, now %d items, total %d", e.OrderNumber, e.RoomNo, e.Action, e.ItemCount, e.Total)
	default:
		return fmt.Sprintf("[UPD] %s room %s: %s (status %s, payment %s)", e.OrderNumber, e.RoomNo, e.Action, e.Status, e.PaymentStatus)
	}
}
