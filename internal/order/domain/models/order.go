package models

import "time"

type Status string

const (
	StatusNew       Status = "New"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusServed    Status = "Served"
	StatusCompleted Status = "Completed"
	StatusUpdated   Status = "Updated"
)

// statusRank orders statuses for strict transitions. Updated sits with New:
// appending items sends an order back to the start of the kitchen flow.
var statusRank = map[Status]int{
	StatusNew:       0,
	StatusUpdated:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusServed:    3,
	StatusCompleted: 4,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a strict lifecycle allows from -> to.
// Staying put is always allowed, moving backwards never is.
func CanTransition(from, to Status) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr >= fr
}

type PaymentStatus string

const (
	PaymentNotPaid PaymentStatus = "Not Paid"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPartial PaymentStatus = "Partial"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentNotPaid, PaymentPaid, PaymentPartial:
		return true
	}
	return false
}

type Order struct {
	ID            string         `json:"id"`
	OrderNo       string         `json:"order_no"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	GuestName     string         `json:"guest_name"`
	RoomNo        string         `json:"room_no"`
	Notes         string         `json:"notes"`
	Source        string         `json:"source"`
	MenuVersion   string         `json:"menu_version"`
	Status        Status         `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	RequestedTime *string        `json:"requested_time"`
	History       []HistoryEntry `json:"history"`
	Total         int64          `json:"total"`
	Items         []OrderItem    `json:"items"`
}

type OrderItem struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	ItemKey string `json:"item_key"`
	Name    string `json:"name"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price"`
}

type HistoryEntry struct {
	When   time.Time `json:"when"`
	Action string    `json:"action"`
}

// OrderPatch lists the fields an update may overwrite; nil leaves a column as is.
type OrderPatch struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	RequestedTime *string
	Notes         *string
	// Strict rejects status moves that CanTransition disallows.
	Strict bool
}
