package emit

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// TableDump is the per-table document in tables/.
type TableDump struct {
	TableName string          `json:"table_name"`
	Columns   []source.Column `json:"columns"`
	RowCount  int             `json:"row_count"`
	Exported  string          `json:"exported"`
	Data      []source.Row    `json:"data"`
}

// RawTable is one table inside the combined backup and the complete export.
type RawTable struct {
	Columns  []source.Column `json:"columns"`
	RowCount int             `json:"row_count"`
	Data     []source.Row    `json:"data"`
}

// RawBackup is backup/all_tables_raw.json.
type RawBackup struct {
	ExportInfo RawExportInfo       `json:"export_info"`
	Tables     map[string]RawTable `json:"tables"`
}

// RawExportInfo summarizes a raw backup.
type RawExportInfo struct {
	Created      string `json:"created"`
	SourceDB     string `json:"source_db"`
	TotalTables  int    `json:"total_tables"`
	TotalRecords int    `json:"total_records"`
}

// ReadTables reads the schema and every row of every table. Names are
// returned in table order.
func ReadTables(ctx context.Context, src source.Accessor) ([]string, map[string]RawTable, error) {
	names, err := src.ListTables(ctx)
	if err != nil {
		return nil, nil, err
	}
	tables := make(map[string]RawTable, len(names))
	for _, name := range names {
		columns, err := src.TableSchema(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		rows, err := src.FetchAll(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		tables[name] = RawTable{Columns: columns, RowCount: len(rows), Data: rows}
	}
	return names, tables, nil
}

// tableFilenames maps each table to its file name in tables/. Two tables
// whose names sanitize to the same file (ignoring case) are rejected before
// anything is written.
func tableFilenames(names []string) (map[string]string, error) {
	files := make(map[string]string, len(names))
	owner := make(map[string]string, len(names))
	for _, name := range names {
		filename, err := validation.SanitizeFilename(name)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		key := strings.ToLower(filename)
		if prev, ok := owner[key]; ok {
			return nil, apperrors.NewValidation("table", fmt.Sprintf("tables %q and %q both map to %s/%s.json", prev, name, stats.CategoryTables, filename))
		}
		owner[key] = name
		files[name] = filename
	}
	return files, nil
}

func emitRaw(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	names, tables, err := ReadTables(ctx, env.Source)
	if err != nil {
		return st, err
	}

	filenames, err := tableFilenames(names)
	if err != nil {
		return st, err
	}

	created := env.timestamp()
	total := 0
	for _, name := range names {
		t := tables[name]
		art, err := env.Writer.WritePretty(stats.CategoryTables+"/"+filenames[name]+".json", stats.CategoryTables, TableDump{
			TableName: name,
			Columns:   t.Columns,
			RowCount:  t.RowCount,
			Exported:  created,
			Data:      t.Data,
		})
		if err != nil {
			return st, err
		}
		st = env.record(ctx, st, art, map[string]int{"rows": t.RowCount})
		st = st.WithTableRows(name, t.RowCount)
		total += t.RowCount
	}

	backup := RawBackup{
		ExportInfo: RawExportInfo{
			Created:      created,
			SourceDB:     env.SourceName,
			TotalTables:  len(names),
			TotalRecords: total,
		},
		Tables: tables,
	}
	art, err := env.Writer.WriteCompressed(stats.CategoryBackup+"/all_tables_raw.json", stats.CategoryBackup, backup)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"tables": len(names), "rows": total})

	logging.LoggerFromContext(ctx).Info("raw tables exported", "tables", len(names), "rows", total)
	return st, nil
}
