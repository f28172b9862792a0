package dto

import "time"

type CreateOrderRequest struct {
	GuestName   string        `json:"guest_name"`
	RoomNo      string        `json:"room_no"`
	Notes       string        `json:"notes"`
	Items       []ItemRequest `json:"items"`
	MenuVersion string        `json:"menu_version"`
}

type ItemRequest struct {
	ItemKey string `json:"item_key"`
	Name    string `json:"name"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price"`
}

type AddItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

// UpdateOrderRequest carries optional fields; nil or empty means "leave as is".
type UpdateOrderRequest struct {
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	RequestedTime *string `json:"requested_time,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// ListFilter narrows a listing. Empty fields are ignored; set ones are ANDed.
type ListFilter struct {
	// Date is a calendar day, YYYY-MM-DD.
	Date   string
	Status string
	RoomNo string
	// Search matches guest name, room number or order number, ignoring case.
	Search string
}

type MenuUploadRequest struct {
	Items []MenuItemRequest `json:"items"`
}

type MenuItemRequest struct {
	ItemKey     string `json:"item_key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

type MenuUploadResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

type LoginResponse struct {
	OK bool `json:"ok"`
}

const (
	EventOrderCreated = "order.created"
	EventItemsAdded   = "order.items_added"
	EventOrderUpdated = "order.updated"
)

// OrderEvent is published after every committed order change.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_no"`
	GuestName     string    `json:"guest_name"`
	RoomNo        string    `json:"room_no"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Total         int64     `json:"total"`
	ItemCount     int       `json:"item_count"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}
