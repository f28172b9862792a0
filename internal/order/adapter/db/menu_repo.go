package db

import (
	"context"
	"fmt"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/models"
	xdb "room-service/internal/xpkg/db"

	"github.com/google/uuid"
)

type MenuRepo struct {
	db *xdb.DB
}

func NewMenuRepo(db *xdb.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

func (mr *MenuRepo) GetByVersion(ctx context.Context, version string) ([]models.MenuItem, error) {
	rows, err := mr.db.Conn().QueryContext(ctx, mr.db.Rebind(`
		SELECT id, version, item_key, name, description, price, category, image
		FROM menus
		WHERE version = ?
		ORDER BY category, name
	`), version)
	if err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID,
			&item.Version,
			&item.ItemKey,
			&item.Name,
			&item.Description,
			&item.Price,
			&item.Category,
			&item.Image,
		); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (mr *MenuRepo) Replace(ctx context.Context, version string, items []models.MenuItem) (int, error) {
	tx, err := mr.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := mr.replace(ctx, tx, version, items); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit transaction", err)
	}
	return len(items), nil
}

// SeedIfEmpty installs items as version when the catalog has no entries at all.
func (mr *MenuRepo) SeedIfEmpty(ctx context.Context, version string, items []models.MenuItem) (bool, error) {
	tx, err := mr.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return false, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM menus`).Scan(&count); err != nil {
		return false, fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if err := mr.replace(ctx, tx, version, items); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, persistErr("commit transaction", err)
	}
	return true, nil
}

func (mr *MenuRepo) replace(ctx context.Context, q xdb.Querier, version string, items []models.MenuItem) error {
	if _, err := q.ExecContext(ctx, mr.db.Rebind(`DELETE FROM menus WHERE version = ?`), version); err != nil {
		return persistErr("delete menu", err)
	}

	insert := mr.db.Rebind(`
		INSERT INTO menus (id, version, item_key, name, description, price, category, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, item := range items {
		_, err := q.ExecContext(ctx, insert,
			uuid.NewString(),
			version,
			item.ItemKey,
			item.Name,
			item.Description,
			item.Price,
			item.Category,
			item.Image,
		)
		if err != nil {
			if mr.db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: duplicate item_key %q", core.ErrValidation, item.ItemKey)
			}
			return persistErr("insert menu item", err)
		}
	}
	return nil
}
