package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
	"room-service/internal/xpkg/logger"
)

type OrderOptions struct {
	DefaultMenuVersion string
	Source             string
	StrictTransitions  bool
}

type OrderService struct {
	orderRepo core.IOrderRepo
	publisher core.IPublisher
	opts      OrderOptions
	mylog     logger.Logger
}

func NewOrderService(
	orderRepo core.IOrderRepo,
	publisher core.IPublisher,
	opts OrderOptions,
	mylogger logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		opts:      opts,
		mylog:     mylogger,
	}
}

func (os *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (models.Order, error) {
	mylog := os.mylog.Action("create_order")

	if err := os.ValidateCreate(req); err != nil {
		mylog.Warn("Rejected order", "reason", err.Error())
		return models.Order{}, err
	}

	menuVersion := strings.TrimSpace(req.MenuVersion)
	if menuVersion == "" {
		menuVersion = os.opts.DefaultMenuVersion
	}

	order := models.Order{
		GuestName:   strings.TrimSpace(req.GuestName),
		RoomNo:      strings.TrimSpace(req.RoomNo),
		Notes:       req.Notes,
		Source:      os.opts.Source,
		MenuVersion: menuVersion,
	}

	newOrder, err := os.orderRepo.Create(ctx, order, toOrderItems(req.Items))
	if err != nil {
		mylog.Error("Failed to save order record in db", err)
		return models.Order{}, fmt.Errorf("cannot save order: %w", err)
	}

	os.publish(ctx, dto.EventOrderCreated, newOrder)
	mylog.Info("Order created", "order_no", newOrder.OrderNo, "total", newOrder.Total)
	return newOrder, nil
}

func (os *OrderService) Get(ctx context.Context, id string) (models.Order, error) {
	order, err := os.orderRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, core.ErrOrderNotFound) {
			os.mylog.Action("get_order").Error("Failed to load order", err)
		}
		return models.Order{}, err
	}
	return order, nil
}

func (os *OrderService) List(ctx context.Context, filter dto.ListFilter) ([]models.Order, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	orders, err := os.orderRepo.List(ctx, filter)
	if err != nil {
		if !errors.Is(err, core.ErrValidation) {
			os.mylog.Action("list_orders").Error("Failed to list orders", err)
		}
		return nil, err
	}
	return orders, nil
}

func (os *OrderService) AddItems(ctx context.Context, id string, req dto.AddItemsRequest) (models.Order, error) {
	mylog := os.mylog.Action("add_items")

	if err := validateItems(req.Items); err != nil {
		return models.Order{}, err
	}

	order, err := os.orderRepo.AppendItems(ctx, id, toOrderItems(req.Items))
	if err != nil {
		if !errors.Is(err, core.ErrOrderNotFound) {
			mylog.Error("Failed to append items", err)
		}
		return models.Order{}, err
	}

	os.publish(ctx, dto.EventItemsAdded, order)
	mylog.Info("Items added", "order_no", order.OrderNo, "count", len(req.Items), "total", order.Total)
	return order, nil
}

func (os *OrderService) Update(ctx context.Context, id string, req dto.UpdateOrderRequest) (models.Order, error) {
	mylog := os.mylog.Action("update_order")

	patch, err := os.buildPatch(req)
	if err != nil {
		return models.Order{}, err
	}

	order, err := os.orderRepo.Patch(ctx, id, patch)
	if err != nil {
		if !errors.Is(err, core.ErrOrderNotFound) && !errors.Is(err, core.ErrInvalidTransition) {
			mylog.Error("Failed to update order", err)
		}
		return models.Order{}, err
	}

	os.publish(ctx, dto.EventOrderUpdated, order)
	mylog.Info("Order updated", "order_no", order.OrderNo, "status", order.Status, "payment_status", order.PaymentStatus)
	return order, nil
}

// ValidateCreate checks the required fields of a new order.
func (os *OrderService) ValidateCreate(req dto.CreateOrderRequest) error {
	if err := validateText("guest_name", req.GuestName, core.MaxGuestNameLen, true); err != nil {
		return err
	}
	if err := validateText("room_no", req.RoomNo, core.MaxRoomNoLen, true); err != nil {
		return err
	}
	if err := validateText("notes", req.Notes, core.MaxNotesLen, false); err != nil {
		return err
	}
	return validateItems(req.Items)
}

func (os *OrderService) buildPatch(req dto.UpdateOrderRequest) (models.OrderPatch, error) {
	patch := models.OrderPatch{Strict: os.opts.StrictTransitions}

	if v := trimmed(req.Status); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			return models.OrderPatch{}, fmt.Errorf("%w: unknown status %q", core.ErrValidation, v)
		}
		patch.Status = &status
	}

	if v := trimmed(req.PaymentStatus); v != "" {
		payment := models.PaymentStatus(v)
		if !payment.Valid() {
			return models.OrderPatch{}, fmt.Errorf("%w: unknown payment status %q", core.ErrValidation, v)
		}
		patch.PaymentStatus = &payment
	}

	if v := trimmed(req.RequestedTime); v != "" {
		patch.RequestedTime = &v
	}

	if req.Notes != nil && *req.Notes != "" {
		if err := validateText("notes", *req.Notes, core.MaxNotesLen, false); err != nil {
			return models.OrderPatch{}, err
		}
		patch.Notes = req.Notes
	}

	return patch, nil
}

// publish hands the event to the publisher. The order is already committed,
// so a failure is only logged.
func (os *OrderService) publish(ctx context.Context, eventType string, order models.Order) {
	if os.publisher == nil {
		return
	}

	action := ""
	if n := len(order.History); n > 0 {
		action = order.History[n-1].Action
	}

	event := dto.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNo,
		GuestName:     order.GuestName,
		RoomNo:        order.RoomNo,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total,
		ItemCount:     len(order.Items),
		Action:        action,
		Timestamp:     order.UpdatedAt,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := os.publisher.Publish(pubCtx, event); err != nil {
		os.mylog.Action("event_publish_failed").Error("Failed to publish order event", err, "order_no", order.OrderNo, "type", eventType)
	}
}

// Helper functions

func validateText(field, value string, maxLen int, required bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return fmt.Errorf("%w: %s: %w", core.ErrValidation, field, core.ErrFieldIsEmpty)
		}
		return nil
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s: length %d exceeds %d", core.ErrValidation, field, len(value), maxLen)
	}
	return nil
}

func validateItems(items []dto.ItemRequest) error {
	if len(items) > core.MaxItems {
		return fmt.Errorf("%w: amount of items: %d, must be at most %d", core.ErrValidation, len(items), core.MaxItems)
	}

	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d: name: %w", core.ErrValidation, i+1, core.ErrFieldIsEmpty)
		}
		if item.Qty <= 0 || item.Qty > core.MaxItemQuantity {
			return fmt.Errorf("%w: item %d: quantity: %d, must be in range [1, %d]", core.ErrValidation, i+1, item.Qty, core.MaxItemQuantity)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item %d: price: %d, must not be negative", core.ErrValidation, i+1, item.Price)
		}
	}
	return nil
}

func toOrderItems(items []dto.ItemRequest) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ItemKey: strings.TrimSpace(item.ItemKey),
			Name:    strings.TrimSpace(item.Name),
			Qty:     item.Qty,
			Price:   item.Price,
		})
	}
	return out
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
