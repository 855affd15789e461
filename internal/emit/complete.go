package emit

import (
	"context"

	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

// CompleteDocument is complete/torah_complete_export.json: the raw tables
// and the structured tree in one file.
type CompleteDocument struct {
	ExportInfo       CompleteExportInfo  `json:"export_info"`
	RawTables        map[string]RawTable `json:"raw_tables"`
	StructuredData   StructuredDocument  `json:"structured_data"`
	ExportStatistics CompleteStatistics  `json:"export_statistics"`
}

// CompleteExportInfo describes a complete export.
type CompleteExportInfo struct {
	ExportedAt      string `json:"exported_at"`
	ExporterVersion string `json:"exporter_version"`
	SourceDatabase  string `json:"source_database"`
	Description     string `json:"description"`
}

// CompleteStatistics are the record counts of a complete export.
type CompleteStatistics struct {
	TotalTables  int            `json:"total_tables"`
	TotalRecords int            `json:"total_records"`
	TableRows    map[string]int `json:"table_rows"`
	Totals       Totals         `json:"totals"`
}

func emitComplete(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	names, tables, err := ReadTables(ctx, env.Source)
	if err != nil {
		return st, err
	}
	structured, err := env.structured(ctx)
	if err != nil {
		return st, err
	}

	rows := make(map[string]int, len(names))
	total := 0
	for _, name := range names {
		rows[name] = tables[name].RowCount
		total += tables[name].RowCount
	}

	doc := CompleteDocument{
		ExportInfo: CompleteExportInfo{
			ExportedAt:      env.timestamp(),
			ExporterVersion: env.ExporterVersion,
			SourceDatabase:  env.SourceName,
			Description:     "Complete export: every raw table plus the structured tree",
		},
		RawTables:      tables,
		StructuredData: structured,
		ExportStatistics: CompleteStatistics{
			TotalTables:  len(names),
			TotalRecords: total,
			TableRows:    rows,
			Totals:       structured.Statistics,
		},
	}

	art, err := env.Writer.WriteCompressed(stats.CategoryComplete+"/torah_complete_export.json", stats.CategoryComplete, doc)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"tables": len(names), "rows": total})
	for name, n := range rows {
		st = st.WithTableRows(name, n)
	}
	return st, nil
}
