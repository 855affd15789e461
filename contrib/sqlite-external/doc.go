// Package sqliteexternal provides the optional CGO SQLite driver.
//
// To use the CGO driver (github.com/mattn/go-sqlite3) build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/torah-export
//
// The default build uses modernc.org/sqlite and needs no C toolchain.
// The CGO driver is noticeably faster on large source databases.
package sqliteexternal
