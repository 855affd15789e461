package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/fixture"
)

func openGenesis(t *testing.T, d fixture.Data) *SQLite {
	t.Helper()
	src, err := Open(context.Background(), fixture.Create(t, d))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestOpenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := Open(context.Background(), path)
	if !errors.Is(err, apperrors.ErrSourceNotFound) {
		t.Fatalf("Open() error = %v, want ErrSourceNotFound", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Open() created the database file")
	}
}

func TestOpenNotSQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "torah.db")
	if err := os.WriteFile(path, []byte("plain text, not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), path); !errors.Is(err, apperrors.ErrSourceNotFound) {
		t.Errorf("Open(text file) error = %v, want ErrSourceNotFound", err)
	}
	if _, err := Open(context.Background(), dir); !errors.Is(err, apperrors.ErrSourceNotFound) {
		t.Errorf("Open(dir) error = %v, want ErrSourceNotFound", err)
	}
}

func TestListTables(t *testing.T) {
	src := openGenesis(t, fixture.Genesis())
	got, err := src.ListTables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tbl_Parsha", "tbl_Question", "tbl_Sefer", "tbl_Title", "tbl_Torah"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTables() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableSchema(t *testing.T) {
	src := openGenesis(t, fixture.Genesis())
	cols, err := src.TableSchema(context.Background(), TableBooks)
	if err != nil {
		t.Fatal(err)
	}
	want := []Column{
		{CID: 0, Name: "ID", Type: "INTEGER", PK: 1},
		{CID: 1, Name: "SeferName", Type: "TEXT", NotNull: 1},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("TableSchema() mismatch (-want +got):\n%s", diff)
	}

	if _, err := src.TableSchema(context.Background(), `x"; DROP TABLE tbl_Sefer; --`); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("TableSchema(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRowJSONKeepsColumnOrder(t *testing.T) {
	src := openGenesis(t, fixture.Genesis())
	rows, err := src.FetchAll(context.Background(), TableVerses)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	got, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	want := `{"ID":1,"Sefer":1,"Perek":1,"PasukNum":1,"Pasuk":"text A"}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestRowJSONNoHTMLEscape(t *testing.T) {
	row := NewRow([]string{"b", "a"}, []any{"<x & y>", nil})
	got, err := row.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"b":"<x & y>","a":null}`; string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}

func TestRowAccessors(t *testing.T) {
	row := NewRow([]string{"n", "f", "s", "null", "bad"}, []any{int64(4), float64(7), "12", nil, 1.5})
	tests := []struct {
		col     string
		want    int64
		wantErr bool
	}{
		{"n", 4, false},
		{"f", 7, false},
		{"s", 12, false},
		{"null", 0, true},
		{"bad", 0, true},
		{"missing", 0, true},
	}
	for _, tt := range tests {
		got, err := row.Int(tt.col)
		if (err != nil) != tt.wantErr {
			t.Errorf("Int(%q) error = %v, wantErr %v", tt.col, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Int(%q) = %d, want %d", tt.col, got, tt.want)
		}
	}
	if s, err := row.Text("null"); err != nil || s != "" {
		t.Errorf("Text(null) = %q, %v", s, err)
	}
}

func TestTypedFetches(t *testing.T) {
	ctx := context.Background()
	src := openGenesis(t, fixture.Genesis())

	books, err := Books(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 || books[0].ID != 1 || books[0].Name != "Genesis" {
		t.Fatalf("Books() = %+v", books)
	}

	chapters, err := ChapterNumbers(ctx, src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{1, 2}, chapters); diff != "" {
		t.Errorf("ChapterNumbers() mismatch (-want +got):\n%s", diff)
	}

	verses, err := Verses(ctx, src, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []Verse{
		{ID: 1, BookID: 1, Chapter: 1, Number: 1, Text: "text A"},
		{ID: 2, BookID: 1, Chapter: 1, Number: 2, Text: "text B"},
	}
	if diff := cmp.Diff(want, verses); diff != "" {
		t.Errorf("Verses() mismatch (-want +got):\n%s", diff)
	}

	titles, err := Titles(ctx, src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 || titles[0].Text != "Creation" {
		t.Fatalf("Titles() = %+v", titles)
	}
	questions, err := Questions(ctx, src, titles[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 2 || questions[0].Text != "Q1" || questions[1].Text != "Q2" {
		t.Errorf("Questions() = %+v", questions)
	}

	if _, err := BookByID(ctx, src, 99); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("BookByID(99) error = %v, want ErrNotFound", err)
	}
}

func TestFetchJoin(t *testing.T) {
	ctx := context.Background()
	src := openGenesis(t, fixture.Genesis())

	rows, err := src.FetchJoin(ctx, JoinParsha)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(parsha rows) = %d, want 1", len(rows))
	}
	wantCols := []string{"ID", "ParshaName", "SeferID", "StartPerek", "StartPasuk", "SeferName"}
	if diff := cmp.Diff(wantCols, rows[0].Columns()); diff != "" {
		t.Errorf("parsha columns mismatch (-want +got):\n%s", diff)
	}

	if _, err := src.FetchJoin(ctx, JoinParshaAlternate); !errors.Is(err, apperrors.ErrOptionalTableMissing) {
		t.Errorf("FetchJoin(alternate) error = %v, want ErrOptionalTableMissing", err)
	}

	questions, err := src.FetchJoin(ctx, JoinQuestionSearch)
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 2 {
		t.Fatalf("len(question rows) = %d, want 2", len(questions))
	}
	if v, _ := questions[0].Text("title"); v != "Creation" {
		t.Errorf("title = %q, want Creation", v)
	}

	if _, err := src.FetchJoin(ctx, Join("bogus")); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("FetchJoin(bogus) error = %v, want ErrUnsupported", err)
	}
}

func TestFetchJoinAlternatePresent(t *testing.T) {
	d := fixture.Genesis()
	d.AltParshiot = []fixture.Parsha{{ID: 5, Name: "Noach", BookID: 1, StartChapter: 6, StartVerse: 9}}
	src := openGenesis(t, d)

	rows, err := src.FetchJoin(context.Background(), JoinParshaAlternate)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if name, _ := rows[0].Text("SeferName"); name != "Genesis" {
		t.Errorf("SeferName = %q", name)
	}
}

func TestCountRows(t *testing.T) {
	src := openGenesis(t, fixture.Genesis())
	n, err := src.CountRows(context.Background(), TableQuestions)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountRows() = %d, want 2", n)
	}
}
