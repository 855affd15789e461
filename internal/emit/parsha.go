package emit

import (
	"context"
	"errors"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

// ParshaDocument is complete/parshiot_complete.json.
type ParshaDocument struct {
	ExportInfo               DocumentInfo     `json:"export_info"`
	ParshiotMainTable        []source.Row     `json:"parshiot_main_table"`
	ParshiotAlternativeTable []source.Row     `json:"parshiot_alternative_table"`
	Statistics               ParshaStatistics `json:"statistics"`
}

// DocumentInfo is the export_info block shared by the complete/ documents.
type DocumentInfo struct {
	Created     string `json:"created"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ParshaStatistics counts both parsha tables.
type ParshaStatistics struct {
	MainCount        int `json:"main_count"`
	AlternativeCount int `json:"alternative_count"`
}

// ParshaTuple returns [id, name, book_id, book_name, start_chapter,
// start_verse] for a parsha joined with its book.
func ParshaTuple(row source.Row) ([]any, error) {
	return tuple(row, "ID", "ParshaName", "SeferID", "SeferName", "StartPerek", "StartPasuk")
}

// alternateParshiot reads the optional Parshiot table. A missing table is
// an empty list.
func alternateParshiot(ctx context.Context, src source.Accessor) ([]source.Row, error) {
	rows, err := src.FetchJoin(ctx, source.JoinParshaAlternate)
	if errors.Is(err, apperrors.ErrOptionalTableMissing) {
		logging.OptionalTableMissing(ctx, source.TableParshiotAlt)
		return []source.Row{}, nil
	}
	return rows, err
}

func emitParsha(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	main, err := env.Source.FetchJoin(ctx, source.JoinParsha)
	if err != nil {
		return st, err
	}
	alt, err := alternateParshiot(ctx, env.Source)
	if err != nil {
		return st, err
	}

	doc := ParshaDocument{
		ExportInfo: DocumentInfo{
			Created: env.timestamp(),
			Type:    "parshiot_complete",
		},
		ParshiotMainTable:        main,
		ParshiotAlternativeTable: alt,
		Statistics: ParshaStatistics{
			MainCount:        len(main),
			AlternativeCount: len(alt),
		},
	}
	art, err := env.Writer.WritePretty(stats.CategoryComplete+"/parshiot_complete.json", stats.CategoryComplete, doc)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"main": len(main), "alternative": len(alt)})

	tuples := make([][]any, 0, len(main))
	for _, row := range main {
		t, err := ParshaTuple(row)
		if err != nil {
			return st, err
		}
		tuples = append(tuples, t)
	}
	art, err = env.Writer.WriteCompressed(stats.CategoryData+"/parshiot", stats.CategoryData, tuples)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"parshiot": len(tuples)})

	return st.WithLevel(stats.LevelParshiot, len(main)), nil
}
