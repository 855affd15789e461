package emit

import (
	"context"
	"fmt"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

// SearchDocument is complete/search_optimized.json.
type SearchDocument struct {
	ExportInfo     DocumentInfo     `json:"export_info"`
	VersesIndex    []source.Row     `json:"verses_index"`
	QuestionsIndex []source.Row     `json:"questions_index"`
	Statistics     SearchStatistics `json:"statistics"`
}

// SearchStatistics counts the search rows.
type SearchStatistics struct {
	TotalVerses    int `json:"total_verses"`
	TotalQuestions int `json:"total_questions"`
}

// Preview returns the first n runes of text, or all of it when n is 0.
func Preview(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// VerseTuple returns [id, book_id, chapter, verse, preview, book_name] for
// a verse search row.
func VerseTuple(row source.Row, previewRunes int) ([]any, error) {
	t, err := tuple(row, "torah_id", "book_id", "chapter", "verse", "text", "book_name")
	if err != nil {
		return nil, err
	}
	text, err := row.Text("text")
	if err != nil {
		return nil, err
	}
	t[4] = Preview(text, previewRunes)
	return t, nil
}

// QuestionTuple returns [question_id, question_text, title, torah_id,
// book_id, book_name, chapter, verse] for a question search row.
func QuestionTuple(row source.Row) ([]any, error) {
	return tuple(row, "question_id", "question_text", "title", "torah_id", "book_id", "book_name", "chapter", "verse")
}

// tuple picks columns from row in order. The first column is the row id
// and must be an integer.
func tuple(row source.Row, columns ...string) ([]any, error) {
	if _, err := row.Int(columns[0]); err != nil {
		return nil, fmt.Errorf("tuple id: %w", err)
	}
	out := make([]any, len(columns))
	for i, col := range columns {
		v, ok := row.Value(col)
		if !ok {
			return nil, fmt.Errorf("tuple: column %s missing", col)
		}
		out[i] = v
	}
	return out, nil
}

// searchRows runs a search join and checks it kept every row of the base
// table. A shortfall means rows reference a parent that does not exist.
func searchRows(ctx context.Context, src source.Accessor, j source.Join, base string) ([]source.Row, error) {
	rows, err := src.FetchJoin(ctx, j)
	if err != nil {
		return nil, err
	}
	n, err := src.CountRows(ctx, base)
	if err != nil {
		return nil, err
	}
	if len(rows) != n {
		return nil, apperrors.NewIntegrity(base, "",
			fmt.Sprintf("%d of %d rows have no complete parent chain", n-len(rows), n))
	}
	return rows, nil
}

func emitSearch(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	verses, err := searchRows(ctx, env.Source, source.JoinVerseSearch, source.TableVerses)
	if err != nil {
		return st, err
	}
	questions, err := searchRows(ctx, env.Source, source.JoinQuestionSearch, source.TableQuestions)
	if err != nil {
		return st, err
	}

	doc := SearchDocument{
		ExportInfo: DocumentInfo{
			Created:     env.timestamp(),
			Type:        "search_optimized",
			Description: "Verse and question rows joined with their book and location",
		},
		VersesIndex:    verses,
		QuestionsIndex: questions,
		Statistics: SearchStatistics{
			TotalVerses:    len(verses),
			TotalQuestions: len(questions),
		},
	}
	art, err := env.Writer.WritePretty(stats.CategoryComplete+"/search_optimized.json", stats.CategoryComplete, doc)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"verses": len(verses), "questions": len(questions)})

	verseTuples := make([][]any, 0, len(verses))
	for _, row := range verses {
		t, err := VerseTuple(row, env.PreviewRunes)
		if err != nil {
			return st, err
		}
		verseTuples = append(verseTuples, t)
	}
	art, err = env.Writer.WriteCompressed(stats.CategoryData+"/search", stats.CategoryData, verseTuples)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"verses": len(verseTuples)})

	questionTuples := make([][]any, 0, len(questions))
	for _, row := range questions {
		t, err := QuestionTuple(row)
		if err != nil {
			return st, err
		}
		questionTuples = append(questionTuples, t)
	}
	art, err = env.Writer.WriteCompressed(stats.CategoryData+"/questions", stats.CategoryData, questionTuples)
	if err != nil {
		return st, err
	}
	return env.record(ctx, st, art, map[string]int{"questions": len(questionTuples)}), nil
}
