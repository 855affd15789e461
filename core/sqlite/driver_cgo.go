//go:build cgo_sqlite

package sqlite

import (
	"net/url"

	sqliteexternal "github.com/FocuswithJustin/TorahExport/contrib/sqlite-external"
)

const (
	driverName    = sqliteexternal.DriverName
	driverType    = sqliteexternal.DriverType
	driverPackage = sqliteexternal.DriverPackage + " (via contrib/sqlite-external)"
)

// readOnlyParams opens the file read-only and sets query_only on every
// connection.
var readOnlyParams = url.Values{
	"mode":        {"ro"},
	"_query_only": {"1"},
}
