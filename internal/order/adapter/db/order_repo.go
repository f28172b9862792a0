package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
	xdb "room-service/internal/xpkg/db"

	"github.com/google/uuid"
)

// timeLayout is fixed width and always UTC, so text comparison of stored
// timestamps matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const orderColumns = `id, order_no, created_at, updated_at, guest_name, room_no, notes, source,
	menu_version, status, payment_status, requested_time, total`

type OrderRepo struct {
	db  *xdb.DB
	loc *time.Location
	now func() time.Time
}

// NewOrderRepo returns a repository whose calendar days (order numbers and
// date filters) are taken in loc.
func NewOrderRepo(db *xdb.DB, loc *time.Location) *OrderRepo {
	if loc == nil {
		loc = time.Local
	}
	return &OrderRepo{
		db:  db,
		loc: loc,
		now: time.Now,
	}
}

// WithClock replaces the time source.
func (or *OrderRepo) WithClock(now func() time.Time) *OrderRepo {
	or.now = now
	return or
}

func (or *OrderRepo) clock() time.Time {
	return or.now().In(or.loc).Truncate(time.Millisecond)
}

func (or *OrderRepo) Create(ctx context.Context, order models.Order, items []models.OrderItem) (models.Order, error) {
	now := or.clock()

	order.ID = uuid.NewString()
	order.OrderNo = models.NewOrderNumber(now)
	order.CreatedAt = now
	order.UpdatedAt = now
	order.Status = models.StatusNew
	order.PaymentStatus = models.PaymentNotPaid
	order.Total = models.Total(items)
	order.History = models.AppendHistory(nil, now, models.CreatedAction)

	tx, err := or.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, or.db.Rebind(`
		INSERT INTO orders (
			id,
			order_no,
			created_at,
			updated_at,
			guest_name,
			room_no,
			notes,
			source,
			menu_version,
			status,
			payment_status,
			requested_time,
			total
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		order.ID,
		order.OrderNo,
		formatTime(order.CreatedAt),
		formatTime(order.UpdatedAt),
		order.GuestName,
		order.RoomNo,
		order.Notes,
		order.Source,
		order.MenuVersion,
		string(order.Status),
		string(order.PaymentStatus),
		order.RequestedTime,
		order.Total,
	)
	if err != nil {
		if or.db.IsUniqueViolation(err) {
			return models.Order{}, fmt.Errorf("insert order %s: %w", order.OrderNo, core.ErrOrderNumberTaken)
		}
		return models.Order{}, persistErr("insert order", err)
	}

	if err := or.insertItems(ctx, tx, order.ID, 0, items); err != nil {
		return models.Order{}, err
	}
	if err := or.insertHistory(ctx, tx, order.ID, 0, order.History); err != nil {
		return models.Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, persistErr("commit transaction", err)
	}

	return or.GetByID(ctx, order.ID)
}

func (or *OrderRepo) GetByID(ctx context.Context, id string) (models.Order, error) {
	order, err := or.getOrderRow(ctx, or.db.Conn(), id, false)
	if err != nil {
		return models.Order{}, err
	}

	orders := []models.Order{order}
	if err := or.loadChildren(ctx, or.db.Conn(), orders); err != nil {
		return models.Order{}, err
	}
	return orders[0], nil
}

func (or *OrderRepo) List(ctx context.Context, filter dto.ListFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Date != "" {
		start, end, err := or.dayBounds(filter.Date)
		if err != nil {
			return nil, err
		}
		conds = append(conds, "created_at BETWEEN ? AND ?")
		args = append(args, formatTime(start), formatTime(end))
	}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	if filter.RoomNo != "" {
		conds = append(conds, "room_no = ?")
		args = append(args, filter.RoomNo)
	}

	if filter.Search != "" {
		like := or.likeOp()
		conds = append(conds, `(guest_name `+like+` ? ESCAPE '\' OR room_no `+like+` ? ESCAPE '\' OR order_no `+like+` ? ESCAPE '\')`)
		pattern := "%" + escapeLike(filter.Search) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, order_no DESC"

	rows, err := or.db.Conn().QueryContext(ctx, or.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	rows.Close()

	if err := or.loadChildren(ctx, or.db.Conn(), orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (or *OrderRepo) AppendItems(ctx context.Context, id string, items []models.OrderItem) (models.Order, error) {
	tx, err := or.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	current, err := or.getOrderRow(ctx, tx, id, true)
	if err != nil {
		return models.Order{}, err
	}

	itemSeq, err := or.nextSeq(ctx, tx, "order_items", id)
	if err != nil {
		return models.Order{}, err
	}
	if err := or.insertItems(ctx, tx, id, itemSeq, items); err != nil {
		return models.Order{}, err
	}

	now := or.clock()
	historySeq, err := or.nextSeq(ctx, tx, "order_history", id)
	if err != nil {
		return models.Order{}, err
	}
	entry := models.AppendHistory(nil, now, models.AddedItemsAction(len(items)))
	if err := or.insertHistory(ctx, tx, id, historySeq, entry); err != nil {
		return models.Order{}, err
	}

	_, err = tx.ExecContext(ctx, or.db.Rebind(`
		UPDATE orders
		SET total = ?, status = ?, updated_at = ?
		WHERE id = ?
	`), current.Total+models.Total(items), string(models.StatusUpdated), formatTime(now), id)
	if err != nil {
		return models.Order{}, persistErr("update order", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, persistErr("commit transaction", err)
	}

	return or.GetByID(ctx, id)
}

func (or *OrderRepo) Patch(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error) {
	tx, err := or.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	current, err := or.getOrderRow(ctx, tx, id, true)
	if err != nil {
		return models.Order{}, err
	}

	now := or.clock()
	var (
		sets    []string
		args    []any
		history []models.HistoryEntry
	)

	if patch.Status != nil {
		next := *patch.Status
		if patch.Strict && !models.CanTransition(current.Status, next) {
			return models.Order{}, fmt.Errorf("%s -> %s: %w", current.Status, next, core.ErrInvalidTransition)
		}
		if next != current.Status {
			history = models.AppendHistory(history, now, models.StatusAction(next))
		}
		sets = append(sets, "status = ?")
		args = append(args, string(next))
	}

	if patch.PaymentStatus != nil {
		next := *patch.PaymentStatus
		if next != current.PaymentStatus {
			history = models.AppendHistory(history, now, models.PaymentAction(next))
		}
		sets = append(sets, "payment_status = ?")
		args = append(args, string(next))
	}

	if patch.RequestedTime != nil {
		sets = append(sets, "requested_time = ?")
		args = append(args, *patch.RequestedTime)
	}

	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(now), id)

	q := `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := tx.ExecContext(ctx, or.db.Rebind(q), args...); err != nil {
		return models.Order{}, persistErr("update order", err)
	}

	if len(history) > 0 {
		seq, err := or.nextSeq(ctx, tx, "order_history", id)
		if err != nil {
			return models.Order{}, err
		}
		if err := or.insertHistory(ctx, tx, id, seq, history); err != nil {
			return models.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, persistErr("commit transaction", err)
	}

	return or.GetByID(ctx, id)
}

// Helper functions

func (or *OrderRepo) getOrderRow(ctx context.Context, q xdb.Querier, id string, lock bool) (models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if lock {
		query += or.db.ForUpdate()
	}

	order, err := scanOrder(q.QueryRowContext(ctx, or.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, fmt.Errorf("order %s: %w", id, core.ErrOrderNotFound)
		}
		return models.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (or *OrderRepo) insertItems(ctx context.Context, q xdb.Querier, orderID string, startSeq int, items []models.OrderItem) error {
	query := or.db.Rebind(`
		INSERT INTO order_items (
			id,
			order_id,
			seq,
			item_key,
			name,
			qty,
			price
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i, item := range items {
		_, err := q.ExecContext(ctx, query, uuid.NewString(), orderID, startSeq+i, item.ItemKey, item.Name, item.Qty, item.Price)
		if err != nil {
			return persistErr("insert item", err)
		}
	}
	return nil
}

func (or *OrderRepo) insertHistory(ctx context.Context, q xdb.Querier, orderID string, startSeq int, entries []models.HistoryEntry) error {
	query := or.db.Rebind(`
		INSERT INTO order_history (
			order_id,
			seq,
			changed_at,
			action
		)
		VALUES (?, ?, ?, ?)
	`)
	for i, entry := range entries {
		if _, err := q.ExecContext(ctx, query, orderID, startSeq+i, formatTime(entry.When), entry.Action); err != nil {
			return persistErr("insert history", err)
		}
	}
	return nil
}

// nextSeq returns the next position in a child table of orders.
func (or *OrderRepo) nextSeq(ctx context.Context, q xdb.Querier, table, orderID string) (int, error) {
	var seq int
	query := fmt.Sprintf(`SELECT COALESCE(MAX(seq), -1) + 1 FROM %s WHERE order_id = ?`, table)
	if err := q.QueryRowContext(ctx, or.db.Rebind(query), orderID).Scan(&seq); err != nil {
		return 0, persistErr("read "+table+" position", err)
	}
	return seq, nil
}

// loadChildren attaches items and history, both in insertion order.
func (or *OrderRepo) loadChildren(ctx context.Context, q xdb.Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]any, 0, len(orders))
	for i := range orders {
		orders[i].Items = []models.OrderItem{}
		orders[i].History = []models.HistoryEntry{}
		index[orders[i].ID] = i
		ids = append(ids, orders[i].ID)
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")"

	rows, err := q.QueryContext(ctx, or.db.Rebind(`
		SELECT id, order_id, item_key, name, qty, price
		FROM order_items
		WHERE order_id IN `+in+`
		ORDER BY order_id, seq
	`), ids...)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemKey, &item.Name, &item.Qty, &item.Price); err != nil {
			rows.Close()
			return fmt.Errorf("scan item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("load items: %w", err)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, or.db.Rebind(`
		SELECT order_id, changed_at, action
		FROM order_history
		WHERE order_id IN `+in+`
		ORDER BY order_id, seq
	`), ids...)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID, when string
			entry         models.HistoryEntry
		)
		if err := rows.Scan(&orderID, &when, &entry.Action); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		if entry.When, err = parseTime(when); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].History = append(orders[i].History, entry)
	}
	return rows.Err()
}

// dayBounds returns [00:00:00.000, 23:59:59.999] of date in the repo location.
func (or *OrderRepo) dayBounds(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(core.DateLayout, date, or.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD: %q", core.ErrValidation, date)
	}
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (models.Order, error) {
	var (
		o                    models.Order
		createdAt, updatedAt string
		requestedTime        sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNo,
		&createdAt,
		&updatedAt,
		&o.GuestName,
		&o.RoomNo,
		&o.Notes,
		&o.Source,
		&o.MenuVersion,
		&o.Status,
		&o.PaymentStatus,
		&requestedTime,
		&o.Total,
	)
	if err != nil {
		return models.Order{}, err
	}

	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Order{}, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Order{}, err
	}
	if requestedTime.Valid {
		o.RequestedTime = &requestedTime.String
	}
	return o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// likeOp is the case-insensitive match operator. SQLite LIKE already folds
// ASCII case and compares other characters as stored, so the pattern is never
// lowered on the Go side.
func (or *OrderRepo) likeOp() string {
	if or.db.Dialect() == xdb.Postgres {
		return "ILIKE"
	}
	return "LIKE"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrPersistence, op, err)
}
