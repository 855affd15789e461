//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite" // registers "sqlite"
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// readOnlyParams opens the file read-only and sets query_only on every
// connection.
var readOnlyParams = url.Values{
	"mode":    {"ro"},
	"_pragma": {"query_only(1)"},
}
