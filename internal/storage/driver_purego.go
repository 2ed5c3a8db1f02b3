//go:build !cgo_sqlite

package storage

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	driverName = "sqlite"
	driverType = "purego"
)
