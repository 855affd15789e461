// Package sqlite opens the source databases through either the pure Go
// (modernc.org/sqlite) or the CGO (mattn/go-sqlite3) driver.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3 via contrib/sqlite-external
//
// Use Open() or OpenReadOnly() instead of sql.Open() so the driver name
// always matches the compiled-in implementation.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
)

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the appropriate driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens a SQLite database in read-only mode. The database
// must already exist; SQLite never creates it in this mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(ReadOnlyDSN(path))
}

// ReadOnlyDSN builds a file: URI that opens path read-only with the
// compiled-in driver's read-only parameters.
func ReadOnlyDSN(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: readOnlyParams.Encode()}
	return u.String()
}

// MustOpen opens a SQLite database and panics on error.
// This is intended for use in tests where database access failure is
// unrecoverable.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open %s: %v", dataSourceName, err))
	}
	return db
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
