//go:build cgo_sqlite

package db

// Build with:
//   CGO_ENABLED=1 go build -tags cgo_sqlite ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql name of the SQLite driver.
const DriverName = "sqlite3"
