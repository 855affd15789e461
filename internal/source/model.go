package source

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
)

// Source table names.
const (
	TableBooks       = "tbl_Sefer"
	TableVerses      = "tbl_Torah"
	TableTitles      = "tbl_Title"
	TableQuestions   = "tbl_Question"
	TableParshiot    = "tbl_Parsha"
	TableParshiotAlt = "Parshiot"
)

// Book is a tbl_Sefer row.
type Book struct {
	ID   int64
	Name string
	Row  Row
}

// Verse is a tbl_Torah row.
type Verse struct {
	ID      int64
	BookID  int64
	Chapter int64
	Number  int64
	Text    string
}

// Title is a tbl_Title row. Row carries every column for the raw views.
type Title struct {
	ID      int64
	VerseID int64
	Text    string
	Row     Row
}

// Question is a tbl_Question row.
type Question struct {
	ID      int64
	TitleID int64
	Text    string
	Row     Row
}

// Books returns every book in ID order.
func Books(ctx context.Context, a Accessor) ([]Book, error) {
	rows, err := a.FetchWhere(ctx, TableBooks, Where{OrderBy: "ID"})
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(rows))
	for _, row := range rows {
		b, err := bookFromRow(row)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// BookByID returns a single book.
func BookByID(ctx context.Context, a Accessor, id int64) (Book, error) {
	rows, err := a.FetchWhere(ctx, TableBooks, Where{Clause: "ID = ?", Params: []any{id}})
	if err != nil {
		return Book{}, err
	}
	if len(rows) == 0 {
		return Book{}, apperrors.NewNotFound("book", strconv.FormatInt(id, 10))
	}
	return bookFromRow(rows[0])
}

func bookFromRow(row Row) (Book, error) {
	var (
		b   = Book{Row: row}
		err error
	)
	if b.ID, err = row.Int("ID"); err != nil {
		return Book{}, schemaError(TableBooks, err)
	}
	if b.Name, err = row.Text("SeferName"); err != nil {
		return Book{}, schemaError(TableBooks, err)
	}
	return b, nil
}

// ChapterNumbers returns the distinct chapter numbers of a book, ascending.
func ChapterNumbers(ctx context.Context, a Accessor, bookID int64) ([]int64, error) {
	return a.DistinctInts(ctx, TableVerses, "Perek", Where{
		Clause:  "Sefer = ?",
		Params:  []any{bookID},
		OrderBy: "Perek",
	})
}

// Verses returns the verses of one chapter in verse order.
func Verses(ctx context.Context, a Accessor, bookID, chapter int64) ([]Verse, error) {
	rows, err := a.FetchWhere(ctx, TableVerses, Where{
		Clause:  "Sefer = ? AND Perek = ?",
		Params:  []any{bookID, chapter},
		OrderBy: "PasukNum, ID",
	})
	if err != nil {
		return nil, err
	}
	verses := make([]Verse, 0, len(rows))
	for _, row := range rows {
		var v Verse
		if v.ID, err = row.Int("ID"); err != nil {
			return nil, schemaError(TableVerses, err)
		}
		if v.BookID, err = row.Int("Sefer"); err != nil {
			return nil, schemaError(TableVerses, err)
		}
		if v.Chapter, err = row.Int("Perek"); err != nil {
			return nil, schemaError(TableVerses, err)
		}
		if v.Number, err = row.Int("PasukNum"); err != nil {
			return nil, schemaError(TableVerses, err)
		}
		if v.Text, err = row.Text("Pasuk"); err != nil {
			return nil, schemaError(TableVerses, err)
		}
		verses = append(verses, v)
	}
	return verses, nil
}

// Titles returns the titles attached to a verse in ID order.
func Titles(ctx context.Context, a Accessor, verseID int64) ([]Title, error) {
	rows, err := a.FetchWhere(ctx, TableTitles, Where{
		Clause:  "TorahID = ?",
		Params:  []any{verseID},
		OrderBy: "ID",
	})
	if err != nil {
		return nil, err
	}
	titles := make([]Title, 0, len(rows))
	for _, row := range rows {
		t := Title{Row: row}
		if t.ID, err = row.Int("ID"); err != nil {
			return nil, schemaError(TableTitles, err)
		}
		if t.VerseID, err = row.Int("TorahID"); err != nil {
			return nil, schemaError(TableTitles, err)
		}
		if t.Text, err = row.Text("Title"); err != nil {
			return nil, schemaError(TableTitles, err)
		}
		titles = append(titles, t)
	}
	return titles, nil
}

// Questions returns the questions grouped under a title in ID order.
func Questions(ctx context.Context, a Accessor, titleID int64) ([]Question, error) {
	rows, err := a.FetchWhere(ctx, TableQuestions, Where{
		Clause:  "TitleID = ?",
		Params:  []any{titleID},
		OrderBy: "ID",
	})
	if err != nil {
		return nil, err
	}
	questions := make([]Question, 0, len(rows))
	for _, row := range rows {
		q := Question{Row: row}
		if q.ID, err = row.Int("ID"); err != nil {
			return nil, schemaError(TableQuestions, err)
		}
		if q.TitleID, err = row.Int("TitleID"); err != nil {
			return nil, schemaError(TableQuestions, err)
		}
		if q.Text, err = row.Text("Question"); err != nil {
			return nil, schemaError(TableQuestions, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func schemaError(table string, err error) error {
	return apperrors.NewIntegrity(table, "", fmt.Sprintf("unexpected row shape: %v", err))
}
