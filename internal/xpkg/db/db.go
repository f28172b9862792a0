package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the relational store shared by the repositories. Queries are written
// with `?` placeholders and passed through Rebind.
type DB struct {
	conn    *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
}

// Start opens the configured store, verifies it and applies pending migrations.
func Start(ctx context.Context, dbCfg *config.Database, mylog logger.Logger) (*DB, error) {
	var (
		d   *DB
		err error
	)
	switch dbCfg.Driver {
	case "postgres":
		d, err = openPostgres(ctx, dbCfg)
	case "sqlite":
		d, err = OpenSQLite(dbCfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", dbCfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := d.IsAlive(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}

	applied, err := Migrate(ctx, d)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	mylog.Action("db_migrated").Info("Schema is up to date", "driver", d.dialect.String(), "applied", applied)

	return d, nil
}

func openPostgres(ctx context.Context, dbCfg *config.Database) (*DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Database,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{
		conn:    stdlib.OpenDBFromPool(pool),
		pool:    pool,
		dialect: Postgres,
	}, nil
}

// OpenSQLite opens an embedded database. ":memory:" gives a private database
// that lives as long as the returned DB.
func OpenSQLite(path string) (*DB, error) {
	conn, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}

	// one connection: a single writer, and ":memory:" stays the same database
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{conn: conn, dialect: SQLite}, nil
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Rebind rewrites `?` placeholders into `$1, $2, ...` for PostgreSQL.
func (d *DB) Rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForUpdate is the row-lock clause appended to reads inside a write transaction.
// SQLite has no row locks; its single connection already serializes writers.
func (d *DB) ForUpdate() string {
	if d.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func (d *DB) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsAlive pings the DB to verify it's responsive
func (d *DB) IsAlive(ctx context.Context) error {
	if d.conn == nil {
		return fmt.Errorf("DB is not initialized")
	}
	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the connection
func (d *DB) Close() error {
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("close database connection: %v", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}
