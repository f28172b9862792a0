//go:build !cgo_sqlite

package db

// Pure Go SQLite, no C toolchain needed. Default build.

import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql name of the SQLite driver.
const DriverName = "sqlite"
