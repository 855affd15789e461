//go:build cgo_sqlite

package sqliteexternal

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// Driver identity reported by core/sqlite when built with cgo_sqlite.
const (
	DriverName    = "sqlite3"
	DriverType    = "cgo"
	DriverPackage = "github.com/mattn/go-sqlite3"
)
