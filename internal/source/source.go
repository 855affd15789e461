// Package source is the read-only query surface over the corpus database:
// table listing, schema introspection, row fetches and the fixed joins the
// emitters need.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/core/sqlite"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// Accessor is the query surface the assembler and emitters read through.
// Clause and OrderBy strings in Where are supplied by this module, never by
// users; table and column names are checked against the schema.
type Accessor interface {
	ListTables(ctx context.Context) ([]string, error)
	HasTable(ctx context.Context, name string) (bool, error)
	TableSchema(ctx context.Context, table string) ([]Column, error)
	FetchAll(ctx context.Context, table string) ([]Row, error)
	FetchWhere(ctx context.Context, table string, w Where) ([]Row, error)
	DistinctInts(ctx context.Context, table, column string, w Where) ([]int64, error)
	FetchJoin(ctx context.Context, j Join) ([]Row, error)
	CountRows(ctx context.Context, table string) (int, error)
}

// Where restricts and orders a fetch.
type Where struct {
	Clause  string // predicate with ? placeholders; empty selects every row
	Params  []any
	OrderBy string
}

// SQLite is an Accessor over a SQLite file opened read-only.
type SQLite struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	tables []string
}

// Open opens the database at path read-only. A missing file, a directory,
// or a file that is not a SQLite database yields a SourceNotFoundError.
func Open(ctx context.Context, path string) (*SQLite, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, apperrors.NewSourceNotFound(path, err)
	}
	if err := checkFile(path); err != nil {
		return nil, apperrors.NewSourceNotFound(path, err)
	}

	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, apperrors.NewSourceNotFound(path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewSourceNotFound(path, err)
	}

	s := &SQLite{db: db, path: path}
	if _, err := s.ListTables(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewSourceNotFound(path, err)
	}
	return s, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if info.Size() == 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	if validation.DetectFileType(header[:n]) != validation.FileTypeSQLite {
		return fmt.Errorf("not a SQLite database")
	}
	return nil
}

// Path returns the path the database was opened from.
func (s *SQLite) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ListTables returns user tables in name order. The list is read once.
func (s *SQLite) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables != nil {
		return slices.Clone(s.tables), nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	s.tables = tables
	return slices.Clone(tables), nil
}

// HasTable reports whether name is a user table.
func (s *SQLite) HasTable(ctx context.Context, name string) (bool, error) {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(tables, name), nil
}

func (s *SQLite) checkTable(ctx context.Context, table string) error {
	ok, err := s.HasTable(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewNotFound("table", table)
	}
	return nil
}

// TableSchema returns the declared columns of table.
func (s *SQLite) TableSchema(ctx context.Context, table string) ([]Column, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("schema of %s: %w", table, err)
	}
	defer rows.Close()

	columns := []Column{}
	for rows.Next() {
		var (
			c    Column
			dflt any
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &c.NotNull, &dflt, &c.PK); err != nil {
			return nil, fmt.Errorf("schema of %s: %w", table, err)
		}
		c.Default = normalize(dflt)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema of %s: %w", table, err)
	}
	return columns, nil
}

// FetchAll returns every row of table.
func (s *SQLite) FetchAll(ctx context.Context, table string) ([]Row, error) {
	return s.FetchWhere(ctx, table, Where{})
}

// FetchWhere returns the rows of table matching w.
func (s *SQLite) FetchWhere(ctx context.Context, table string, w Where) ([]Row, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + quoteIdent(table) + w.sql()
	rows, err := s.query(ctx, query, w.Params...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return rows, nil
}

// DistinctInts returns the distinct integer values of column among the rows
// matching w.
func (s *SQLite) DistinctInts(ctx context.Context, table, column string, w Where) ([]int64, error) {
	columns, err := s.TableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(columns, func(c Column) bool { return c.Name == column }) {
		return nil, apperrors.NewNotFound("column", table+"."+column)
	}

	query := "SELECT DISTINCT " + quoteIdent(column) + " FROM " + quoteIdent(table) + w.sql()
	rows, err := s.db.QueryContext(ctx, query, w.Params...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	values := []int64{}
	for rows.Next() {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("distinct %s.%s: %w", table, column, err)
		}
		if !v.Valid {
			return nil, apperrors.NewIntegrity(table, "", column+" is NULL")
		}
		values = append(values, v.Int64)
	}
	return values, rows.Err()
}

// CountRows returns the number of rows in table.
func (s *SQLite) CountRows(ctx context.Context, table string) (int, error) {
	if err := s.checkTable(ctx, table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// FetchJoin runs one of the fixed joins.
func (s *SQLite) FetchJoin(ctx context.Context, j Join) ([]Row, error) {
	def, ok := joins[j]
	if !ok {
		return nil, fmt.Errorf("%w: join %q", apperrors.ErrUnsupported, j)
	}
	for _, table := range def.tables {
		present, err := s.HasTable(ctx, table)
		if err != nil {
			return nil, err
		}
		if present {
			continue
		}
		if table == def.optional {
			return nil, fmt.Errorf("%s: %w", table, apperrors.ErrOptionalTableMissing)
		}
		return nil, apperrors.NewNotFound("table", table)
	}

	rows, err := s.query(ctx, def.query)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", j, err)
	}
	return rows, nil
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		result = append(result, NewRow(columns, values))
	}
	return result, rows.Err()
}

func (w Where) sql() string {
	var b strings.Builder
	if w.Clause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(w.Clause)
	}
	if w.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(w.OrderBy)
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
