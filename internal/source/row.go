package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Row is one result row. It keeps the column order of the query so that
// serialized rows read the same way the table does.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in query order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Value returns the value of col and whether the column exists.
func (r Row) Value(col string) (any, bool) {
	for i, c := range r.columns {
		if c == col {
			return r.values[i], true
		}
	}
	return nil, false
}

// Int returns col as an integer.
func (r Row) Int(col string) (int64, error) {
	v, ok := r.Value(col)
	if !ok {
		return 0, fmt.Errorf("column %s missing", col)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %s: %v (%T) is not an integer", col, v, v)
}

// Text returns col as a string. NULL reads as the empty string.
func (r Row) Text(col string) (string, error) {
	v, ok := r.Value(col)
	if !ok {
		return "", fmt.Errorf("column %s missing", col)
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return fmt.Sprint(v), nil
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(&buf, col); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeValue(&buf, r.values[i]); err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// normalize converts driver values into JSON-friendly ones. TEXT may come
// back as []byte depending on the driver.
func normalize(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

// Column describes one column as reported by PRAGMA table_info.
type Column struct {
	CID     int64  `json:"cid"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull int64  `json:"notnull"`
	Default any    `json:"dflt_value"`
	PK      int64  `json:"pk"`
}
