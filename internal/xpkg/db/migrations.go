package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Migration is one schema step. Statements run in order inside one transaction.
// The DDL sticks to types both PostgreSQL and SQLite accept.
type Migration struct {
	Version    string
	Statements []string
}

var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS menus (
				id          TEXT PRIMARY KEY,
				version     TEXT NOT NULL,
				item_key    TEXT NOT NULL,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				price       BIGINT NOT NULL,
				category    TEXT NOT NULL DEFAULT '',
				image       TEXT NOT NULL DEFAULT '',
				UNIQUE (version, item_key)
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id             TEXT PRIMARY KEY,
				order_no       TEXT NOT NULL UNIQUE,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL,
				guest_name     TEXT NOT NULL,
				room_no        TEXT NOT NULL,
				notes          TEXT NOT NULL DEFAULT '',
				source         TEXT NOT NULL DEFAULT '',
				menu_version   TEXT NOT NULL,
				status         TEXT NOT NULL,
				payment_status TEXT NOT NULL,
				requested_time TEXT,
				total          BIGINT NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_room_no ON orders(room_no)`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id       TEXT PRIMARY KEY,
				order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				seq      INTEGER NOT NULL,
				item_key TEXT NOT NULL DEFAULT '',
				name     TEXT NOT NULL,
				qty      INTEGER NOT NULL,
				price    BIGINT NOT NULL,
				UNIQUE (order_id, seq)
			)`,
			`CREATE TABLE IF NOT EXISTS order_history (
				order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				seq      INTEGER NOT NULL,
				changed_at TEXT NOT NULL,
				action   TEXT NOT NULL,
				PRIMARY KEY (order_id, seq)
			)`,
		},
	},
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
	version    TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate applies every migration newer than the recorded schema version.
// Running it on an up-to-date schema is a no-op. Returns the versions applied.
func Migrate(ctx context.Context, d *DB) ([]string, error) {
	if _, err := d.conn.ExecContext(ctx, createSchemaVersion); err != nil {
		return nil, fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(ctx, d)
	if err != nil {
		return nil, err
	}

	pending, err := pendingMigrations(current)
	if err != nil {
		return nil, err
	}

	applied := []string{}
	for _, m := range pending {
		if err := applyMigration(ctx, d, m); err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.Version, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func currentVersion(ctx context.Context, d *DB) (*semver.Version, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	defer rows.Close()

	var current *semver.Version
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("bad schema version %q: %w", raw, err)
		}
		if current == nil || v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

func pendingMigrations(current *semver.Version) ([]Migration, error) {
	type versioned struct {
		v *semver.Version
		m Migration
	}
	var list []versioned
	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("bad migration version %q: %w", m.Version, err)
		}
		if current == nil || v.GreaterThan(current) {
			list = append(list, versioned{v: v, m: m})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].v.LessThan(list[j].v) })

	out := make([]Migration, 0, len(list))
	for _, item := range list {
		out = append(out, item.m)
	}
	return out, nil
}

func applyMigration(ctx context.Context, d *DB, m Migration) (err error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.Statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		d.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
		m.Version, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
