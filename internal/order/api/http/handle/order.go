package handle

import (
	"context"
	"net/http"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/app/services"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse order", err)
			jsonError(w, http.StatusBadRequest, err)
			return
		}
		oh.mylog.Action("received").Debug("Received order info", "guest_name", req.GuestName, "room_no", req.RoomNo, "number_of_items", len(req.Items))

		ctx, cancel := requestContext(r)
		defer cancel()

		order, err := oh.orderService.Create(ctx, req)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestContext(r)
		defer cancel()

		order, err := oh.orderService.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := dto.ListFilter{
			Date:   q.Get("date"),
			Status: q.Get("status"),
			RoomNo: q.Get("room_no"),
			Search: q.Get("search"),
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		orders, err := oh.orderService.List(ctx, filter)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, orders)
	}
}

func (oh *OrderHandler) AddItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.AddItemsRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		order, err := oh.orderService.AddItems(ctx, chi.URLParam(r, "id"), req)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpdateOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		order, err := oh.orderService.Update(ctx, chi.URLParam(r, "id"), req)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), core.WaitTime*time.Second)
}
