package core

import (
	"context"

	"room-service/internal/order/domain/dto"
)

// IPublisher hands order events to whatever is listening (kitchen feed,
// messaging integrations). Implementations must be safe for concurrent use.
type IPublisher interface {
	Close() error
	Publish(ctx context.Context, event dto.OrderEvent) error
}
