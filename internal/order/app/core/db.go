package core

import (
	"context"

	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
)

type IDB interface {
	Close() error
	IsAlive(ctx context.Context) error
}

type IOrderRepo interface {
	Create(ctx context.Context, order models.Order, items []models.OrderItem) (models.Order, error)
	GetByID(ctx context.Context, id string) (models.Order, error)
	List(ctx context.Context, filter dto.ListFilter) ([]models.Order, error)
	// AppendItems adds items, bumps the total by their sum and marks the order Updated.
	AppendItems(ctx context.Context, id string, items []models.OrderItem) (models.Order, error)
	Patch(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error)
}

type IMenuRepo interface {
	GetByVersion(ctx context.Context, version string) ([]models.MenuItem, error)
	// Replace swaps the whole menu of a version and returns the new item count.
	Replace(ctx context.Context, version string, items []models.MenuItem) (int, error)
	SeedIfEmpty(ctx context.Context, version string, items []models.MenuItem) (bool, error)
}
