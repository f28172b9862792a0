package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
	xdb "room-service/internal/xpkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestDB(t *testing.T) *xdb.DB {
	t.Helper()
	d, err := xdb.OpenSQLite(":memory:")
	require.NoError(t, err)
	_, err = xdb.Migrate(context.Background(), d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func setupRepo(t *testing.T, loc *time.Location) (*OrderRepo, *fakeClock, *xdb.DB) {
	t.Helper()
	d := setupTestDB(t)
	clk := &fakeClock{t: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	return NewOrderRepo(d, loc).WithClock(clk.Now), clk, d
}

func newOrder(guest, room string) models.Order {
	return models.Order{
		GuestName:   guest,
		RoomNo:      room,
		Source:      "staff-app",
		MenuVersion: "RestoVersion",
	}
}

func scenarioItems() []models.OrderItem {
	return []models.OrderItem{
		{ItemKey: "paneer_tikka", Name: "Paneer Tikka Masala", Qty: 2, Price: 100},
		{ItemKey: "naan", Name: "Naan", Qty: 1, Price: 50},
	}
}

func TestCreate(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.NewOrderNumber(clk.Now()), order.OrderNo)
	assert.Equal(t, models.StatusNew, order.Status)
	assert.Equal(t, models.PaymentNotPaid, order.PaymentStatus)
	assert.Equal(t, int64(250), order.Total)
	assert.Equal(t, models.Total(order.Items), order.Total)
	assert.True(t, order.CreatedAt.Equal(clk.Now()))
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	assert.Nil(t, order.RequestedTime)

	require.Len(t, order.History, 1)
	assert.Equal(t, "Created", order.History[0].Action)
	assert.True(t, order.History[0].When.Equal(clk.Now()))

	require.Len(t, order.Items, 2)
	assert.Equal(t, "paneer_tikka", order.Items[0].ItemKey)
	assert.Equal(t, "naan", order.Items[1].ItemKey)
	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
		assert.NotEmpty(t, item.ID)
	}
}

func TestCreate_NoItems(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)

	order, err := repo.Create(context.Background(), newOrder("Bob", "7"), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), order.Total)
	assert.NotNil(t, order.Items)
	assert.Empty(t, order.Items)
}

func TestCreate_RoundTrip(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	o := newOrder("Carol", "204")
	o.Notes = "no onions"
	created, err := repo.Create(ctx, o, scenarioItems())
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestCreate_OrderNumberCollision(t *testing.T) {
	repo, _, d := setupRepo(t, time.UTC)
	ctx := context.Background()

	first, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	// same clock reading, same order number
	_, err = repo.Create(ctx, newOrder("Dave", "102"), scenarioItems())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrOrderNumberTaken)
	assert.ErrorIs(t, err, core.ErrPersistence)

	// nothing of the failed order is visible
	var orders, items, history int
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders))
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&items))
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM order_history`).Scan(&history))
	assert.Equal(t, 1, orders)
	assert.Equal(t, len(first.Items), items)
	assert.Equal(t, 1, history)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestAppendItems(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	clk.Advance(time.Minute)
	updated, err := repo.AppendItems(ctx, order.ID, []models.OrderItem{{ItemKey: "lassi", Name: "Lassi", Qty: 1, Price: 25}})
	require.NoError(t, err)

	assert.Equal(t, int64(275), updated.Total)
	assert.Equal(t, models.StatusUpdated, updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(clk.Now()))
	assert.Equal(t, order.CreatedAt, updated.CreatedAt)
	assert.Equal(t, order.OrderNo, updated.OrderNo)

	require.Len(t, updated.History, 2)
	assert.Equal(t, "Created", updated.History[0].Action)
	assert.Equal(t, "Added 1 items", updated.History[1].Action)

	require.Len(t, updated.Items, 3)
	assert.Equal(t, "lassi", updated.Items[2].ItemKey)
}

func TestAppendItems_IncrementalTotal(t *testing.T) {
	repo, clk, d := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	// a menu price change never touches stored line items, and the total is
	// grown from the stored total rather than recomputed
	_, err = d.Conn().Exec(`UPDATE orders SET total = 1000 WHERE id = ?`, order.ID)
	require.NoError(t, err)

	clk.Advance(time.Second)
	updated, err := repo.AppendItems(ctx, order.ID, []models.OrderItem{{Name: "Tea", Qty: 2, Price: 30}})
	require.NoError(t, err)
	assert.Equal(t, int64(1060), updated.Total)
}

func TestAppendItems_OverridesCompleted(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), nil)
	require.NoError(t, err)

	completed := models.StatusCompleted
	clk.Advance(time.Second)
	_, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &completed})
	require.NoError(t, err)

	clk.Advance(time.Second)
	updated, err := repo.AppendItems(ctx, order.ID, []models.OrderItem{{Name: "Tea", Qty: 1, Price: 30}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpdated, updated.Status)
	assert.Len(t, updated.History, 3)
}

func TestAppendItems_Empty(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	clk.Advance(time.Minute)
	updated, err := repo.AppendItems(ctx, order.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, order.Total, updated.Total)
	assert.Len(t, updated.Items, 2)
	assert.Equal(t, models.StatusUpdated, updated.Status)
	assert.True(t, updated.UpdatedAt.After(order.UpdatedAt))
	require.Len(t, updated.History, 2)
	assert.Equal(t, "Added 0 items", updated.History[1].Action)

	_, err = repo.AppendItems(ctx, "missing", nil)
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestAppendItems_NotFound(t *testing.T) {
	repo, _, d := setupRepo(t, time.UTC)

	_, err := repo.AppendItems(context.Background(), "missing", []models.OrderItem{{Name: "Tea", Qty: 1, Price: 30}})
	assert.ErrorIs(t, err, core.ErrOrderNotFound)

	var items int
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&items))
	assert.Zero(t, items)
}

func TestAppendItems_Concurrent(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), nil)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendItems(ctx, order.ID, []models.OrderItem{{Name: "Tea", Qty: 1, Price: 10}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n*10), final.Total)
	assert.Len(t, final.Items, n)
	assert.Len(t, final.History, n+1)
}

func TestPatch_StatusAndPayment(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	ready := models.StatusReady
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &ready})
	require.NoError(t, err)
	require.Len(t, order.History, 2)
	assert.Equal(t, "Status -> Ready", order.History[1].Action)
	assert.Equal(t, models.StatusReady, order.Status)

	// same status again: no new entry
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &ready})
	require.NoError(t, err)
	assert.Len(t, order.History, 2)

	paid := models.PaymentPaid
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{PaymentStatus: &paid})
	require.NoError(t, err)
	require.Len(t, order.History, 3)
	assert.Equal(t, "Payment -> Paid", order.History[2].Action)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	// status and payment never touch the total
	assert.Equal(t, int64(250), order.Total)
}

func TestPatch_BothChangesInOrder(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), nil)
	require.NoError(t, err)

	served := models.StatusServed
	partial := models.PaymentPartial
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &served, PaymentStatus: &partial})
	require.NoError(t, err)

	require.Len(t, order.History, 3)
	assert.Equal(t, "Status -> Served", order.History[1].Action)
	assert.Equal(t, "Payment -> Partial", order.History[2].Action)
}

func TestPatch_EmptyOnlyTouchesUpdatedAt(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	before, err := repo.Create(ctx, newOrder("Alice", "101"), scenarioItems())
	require.NoError(t, err)

	clk.Advance(time.Minute)
	after, err := repo.Patch(ctx, before.ID, models.OrderPatch{})
	require.NoError(t, err)

	assert.True(t, after.UpdatedAt.Equal(clk.Now()))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after)
}

func TestPatch_NotesAndRequestedTime(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	o := newOrder("Alice", "101")
	o.Notes = "ring bell"
	order, err := repo.Create(ctx, o, nil)
	require.NoError(t, err)

	at := "19:30"
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{RequestedTime: &at})
	require.NoError(t, err)
	require.NotNil(t, order.RequestedTime)
	assert.Equal(t, "19:30", *order.RequestedTime)
	assert.Equal(t, "ring bell", order.Notes)
	assert.Len(t, order.History, 1)

	notes := "leave at door"
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "leave at door", order.Notes)
	assert.Equal(t, "19:30", *order.RequestedTime)
}

func TestPatch_Strict(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()

	order, err := repo.Create(ctx, newOrder("Alice", "101"), nil)
	require.NoError(t, err)

	completed := models.StatusCompleted
	clk.Advance(time.Second)
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &completed, Strict: true})
	require.NoError(t, err)

	back := models.StatusNew
	clk.Advance(time.Second)
	_, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &back, Strict: true})
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	unchanged, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, unchanged)

	// permissive mode accepts the same move
	order, err = repo.Patch(ctx, order.ID, models.OrderPatch{Status: &back})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, order.Status)
}

func TestPatch_NotFound(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)

	_, err := repo.Patch(context.Background(), "missing", models.OrderPatch{})
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func createAt(t *testing.T, repo *OrderRepo, clk *fakeClock, at time.Time, guest, room string) models.Order {
	t.Helper()
	clk.t = at
	order, err := repo.Create(context.Background(), newOrder(guest, room), nil)
	require.NoError(t, err)
	return order
}

func TestList_DateWindow(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)

	createAt(t, repo, clk, time.Date(2025, 3, 6, 23, 59, 59, 999_000_000, time.UTC), "before", "1")
	first := createAt(t, repo, clk, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), "first", "2")
	last := createAt(t, repo, clk, time.Date(2025, 3, 7, 23, 59, 59, 999_000_000, time.UTC), "last", "3")
	createAt(t, repo, clk, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), "after", "4")

	orders, err := repo.List(context.Background(), dto.ListFilter{Date: "2025-03-07"})
	require.NoError(t, err)

	require.Len(t, orders, 2)
	assert.Equal(t, last.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestList_DateUsesRepoLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	repo, clk, _ := setupRepo(t, ist)

	// 2025-03-07 00:30 in IST is still 2025-03-06 in UTC
	inside := createAt(t, repo, clk, time.Date(2025, 3, 6, 19, 0, 0, 0, time.UTC), "late", "1")
	createAt(t, repo, clk, time.Date(2025, 3, 6, 18, 0, 0, 0, time.UTC), "early", "2")

	orders, err := repo.List(context.Background(), dto.ListFilter{Date: "2025-03-07"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, inside.ID, orders[0].ID)
	assert.Equal(t, "ORD-250307-", inside.OrderNo[:11])
}

func TestList_Filters(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()
	base := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)

	alice := createAt(t, repo, clk, base, "Alice", "101")
	bob := createAt(t, repo, clk, base.Add(time.Minute), "Bob", "205")
	carol := createAt(t, repo, clk, base.Add(2*time.Minute), "Carol", "310")

	ready := models.StatusReady
	_, err := repo.Patch(ctx, bob.ID, models.OrderPatch{Status: &ready})
	require.NoError(t, err)

	t.Run("no filters newest first", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{})
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, []string{carol.ID, bob.ID, alice.ID}, ids(orders))
		for _, o := range orders {
			assert.NotEmpty(t, o.History)
			assert.NotNil(t, o.Items)
		}
	})

	t.Run("status", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{Status: "Ready"})
		require.NoError(t, err)
		assert.Equal(t, []string{bob.ID}, ids(orders))
	})

	t.Run("room exact", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{RoomNo: "10"})
		require.NoError(t, err)
		assert.Empty(t, orders)

		orders, err = repo.List(ctx, dto.ListFilter{RoomNo: "101"})
		require.NoError(t, err)
		assert.Equal(t, []string{alice.ID}, ids(orders))
	})

	t.Run("search guest ignores case", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{Search: "ALI"})
		require.NoError(t, err)
		assert.Equal(t, []string{alice.ID}, ids(orders))
	})

	t.Run("search room", func(t *testing.T) {
		// only the room number of Bob contains a 5
		orders, err := repo.List(ctx, dto.ListFilter{Search: "05"})
		require.NoError(t, err)
		assert.Equal(t, []string{bob.ID}, ids(orders))
	})

	t.Run("search order number", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{Search: carol.OrderNo[4:]})
		require.NoError(t, err)
		assert.Equal(t, []string{carol.ID}, ids(orders))
	})

	t.Run("search is ANDed with other filters", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{Search: "bo", Status: "New"})
		require.NoError(t, err)
		assert.Empty(t, orders)

		orders, err = repo.List(ctx, dto.ListFilter{Search: "bo", Status: "Ready"})
		require.NoError(t, err)
		assert.Equal(t, []string{bob.ID}, ids(orders))
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		orders, err := repo.List(ctx, dto.ListFilter{Search: "%"})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestList_SearchNonASCII(t *testing.T) {
	repo, clk, _ := setupRepo(t, time.UTC)
	ctx := context.Background()
	base := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)

	emile := createAt(t, repo, clk, base, "ÉMILE Dupont", "101")
	createAt(t, repo, clk, base.Add(time.Minute), "Alice", "205")

	for _, search := range []string{"ÉMILE", "Émile", "dupont", "É"} {
		t.Run(search, func(t *testing.T) {
			orders, err := repo.List(ctx, dto.ListFilter{Search: search})
			require.NoError(t, err)
			assert.Equal(t, []string{emile.ID}, ids(orders))
		})
	}
}

func TestList_BadDate(t *testing.T) {
	repo, _, _ := setupRepo(t, time.UTC)

	_, err := repo.List(context.Background(), dto.ListFilter{Date: "07/03/2025"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
