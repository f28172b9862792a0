package models

import (
	"fmt"
	"time"
)

// NewOrderNumber formats ORD-YYMMDD-NNNNN, where NNNNN are the last five
// digits of now in Unix milliseconds. Two orders in the same 100s window can
// collide; the orders.order_no UNIQUE constraint catches that.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%05d", now.Format("060102"), now.UnixMilli()%100000)
}

// AppendHistory returns history with {when, action} added at the end.
// The result never shares its backing array with the input.
func AppendHistory(history []HistoryEntry, when time.Time, action string) []HistoryEntry {
	out := make([]HistoryEntry, len(history), len(history)+1)
	copy(out, history)
	return append(out, HistoryEntry{When: when, Action: action})
}

// Total is the sum of qty * price.
func Total(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Qty) * item.Price
	}
	return total
}

func StatusAction(s Status) string {
	return fmt.Sprintf("Status -> %s", s)
}

func PaymentAction(p PaymentStatus) string {
	return fmt.Sprintf("Payment -> %s", p)
}

func AddedItemsAction(n int) string {
	return fmt.Sprintf("Added %d items", n)
}

const CreatedAction = "Created"
