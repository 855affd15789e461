package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/fixture"
	"github.com/FocuswithJustin/TorahExport/internal/source"
)

func openSource(t *testing.T, d fixture.Data) *source.SQLite {
	t.Helper()
	src, err := source.Open(context.Background(), fixture.Create(t, d))
	if err != nil {
		t.Fatalf("source.Open() error = %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestAssembleGenesis(t *testing.T) {
	src := openSource(t, fixture.Genesis())
	book, err := Assemble(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	wantBook := BookStats{ChapterCount: 2, VerseCount: 3, TitleCount: 2, QuestionGroupCount: 1, QuestionCount: 2}
	if diff := cmp.Diff(wantBook, book.Stats); diff != "" {
		t.Errorf("book stats mismatch (-want +got):\n%s", diff)
	}
	if len(book.Chapters) != 2 {
		t.Fatalf("len(Chapters) = %d, want 2", len(book.Chapters))
	}

	ch1 := book.Chapters[0]
	if ch1.Number != 1 || len(ch1.Verses) != 2 {
		t.Fatalf("chapter 1 = number %d with %d verses", ch1.Number, len(ch1.Verses))
	}
	wantCh1 := ChapterStats{VerseCount: 2, TitleCount: 1, QuestionGroupCount: 1, QuestionCount: 2}
	if diff := cmp.Diff(wantCh1, ch1.Stats); diff != "" {
		t.Errorf("chapter 1 stats mismatch (-want +got):\n%s", diff)
	}

	v1, v2 := ch1.Verses[0], ch1.Verses[1]
	if v1.Number != 1 || v1.Text != "text A" || len(v1.QuestionGroups()) != 1 {
		t.Errorf("verse 1:1 = %d %q with %d groups", v1.Number, v1.Text, len(v1.QuestionGroups()))
	}
	if got := v1.QuestionGroups()[0].Questions; len(got) != 2 || got[0].Text != "Q1" || got[1].Text != "Q2" {
		t.Errorf("verse 1:1 questions = %+v", got)
	}
	if v2.Titles == nil || len(v2.Titles) != 0 {
		t.Errorf("verse 1:2 titles = %#v, want empty non-nil", v2.Titles)
	}
	if v2.Stats != (VerseStats{}) {
		t.Errorf("verse 1:2 stats = %+v, want zero", v2.Stats)
	}

	// A title without questions is kept in the raw view and dropped from the
	// question groups.
	v3 := book.Chapters[1].Verses[0]
	if len(v3.Titles) != 1 || len(v3.QuestionGroups()) != 0 {
		t.Errorf("verse 2:1 has %d titles and %d groups, want 1 and 0", len(v3.Titles), len(v3.QuestionGroups()))
	}
	wantV3 := VerseStats{TitleCount: 1}
	if v3.Stats != wantV3 {
		t.Errorf("verse 2:1 stats = %+v, want %+v", v3.Stats, wantV3)
	}
}

func TestBookStatsAreSums(t *testing.T) {
	d := multiBook()
	src := openSource(t, d)
	books, err := AssembleAll(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range books {
		var sum BookStats
		for _, ch := range b.Chapters {
			var cs ChapterStats
			for _, v := range ch.Verses {
				cs.add(v.Stats)
			}
			if cs != ch.Stats {
				t.Errorf("book %d chapter %d stats = %+v, sum of verses = %+v", b.ID, ch.Number, ch.Stats, cs)
			}
			sum.add(ch.Stats)
		}
		if sum != b.Stats {
			t.Errorf("book %d stats = %+v, sum of chapters = %+v", b.ID, b.Stats, sum)
		}
	}
}

func TestAssembleEmptyBook(t *testing.T) {
	d := fixture.Genesis()
	d.Books = append(d.Books, fixture.Book{ID: 2, Name: "Exodus"})
	src := openSource(t, d)

	book, err := Assemble(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if book.Chapters == nil || len(book.Chapters) != 0 {
		t.Errorf("Chapters = %#v, want empty non-nil", book.Chapters)
	}
	if book.Stats != (BookStats{}) {
		t.Errorf("Stats = %+v, want zero", book.Stats)
	}
}

func TestAssembleUnknownBook(t *testing.T) {
	src := openSource(t, fixture.Genesis())
	if _, err := Assemble(context.Background(), src, 42); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Assemble(42) error = %v, want ErrNotFound", err)
	}
}

func TestAssembleDuplicateVerse(t *testing.T) {
	d := fixture.Genesis()
	d.Verses = append(d.Verses, fixture.Verse{ID: 4, BookID: 1, Chapter: 1, Number: 1, Text: "again"})
	src := openSource(t, d)

	_, err := Assemble(context.Background(), src, 1)
	var ie *apperrors.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Assemble() error = %v, want IntegrityError", err)
	}
	if ie.Table != source.TableVerses || ie.Book != "Genesis" {
		t.Errorf("IntegrityError = %+v", ie)
	}
}

// misfiledTitles returns titles as if they belonged to another verse.
type misfiledTitles struct {
	source.Accessor
}

func (m misfiledTitles) FetchWhere(ctx context.Context, table string, w source.Where) ([]source.Row, error) {
	rows, err := m.Accessor.FetchWhere(ctx, table, w)
	if err != nil || table != source.TableTitles {
		return rows, err
	}
	out := make([]source.Row, len(rows))
	for i, r := range rows {
		id, _ := r.Int("ID")
		text, _ := r.Text("Title")
		out[i] = source.NewRow([]string{"ID", "TorahID", "Title"}, []any{id, int64(999), text})
	}
	return out, nil
}

func TestAssembleMisfiledTitle(t *testing.T) {
	src := openSource(t, fixture.Genesis())
	_, err := Assemble(context.Background(), misfiledTitles{src}, 1)
	var ie *apperrors.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Assemble() error = %v, want IntegrityError", err)
	}
	if ie.Table != source.TableTitles {
		t.Errorf("Table = %q, want %q", ie.Table, source.TableTitles)
	}
}

func TestAssembleAllParallelKeepsOrder(t *testing.T) {
	src := openSource(t, multiBook())
	ctx := context.Background()

	serial, err := AssembleAll(ctx, src, 1)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := AssembleAll(ctx, src, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(serial, parallel, cmp.AllowUnexported(source.Row{})); diff != "" {
		t.Errorf("parallel assembly differs (-serial +parallel):\n%s", diff)
	}
	for i, b := range parallel {
		if b.ID != int64(i+1) {
			t.Errorf("book %d has ID %d", i, b.ID)
		}
	}
}

func TestAssembleAllOrphans(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(d *fixture.Data)
		table string
	}{
		{
			name: "title on missing verse",
			edit: func(d *fixture.Data) {
				d.Titles = append(d.Titles, fixture.Title{ID: 900, VerseID: 999, Text: "lost"})
				d.Questions = append(d.Questions, fixture.Question{ID: 900, TitleID: 900, Text: "lost"})
			},
			table: source.TableTitles,
		},
		{
			name: "question on missing title",
			edit: func(d *fixture.Data) {
				d.Questions = append(d.Questions, fixture.Question{ID: 900, TitleID: 999, Text: "lost"})
			},
			table: source.TableQuestions,
		},
		{
			name: "verse of missing book",
			edit: func(d *fixture.Data) {
				d.Verses = append(d.Verses, fixture.Verse{ID: 900, BookID: 9, Chapter: 1, Number: 1, Text: "lost"})
			},
			table: source.TableVerses,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fixture.Genesis()
			tt.edit(&d)
			src := openSource(t, d)

			for _, jobs := range []int{1, 2} {
				_, err := AssembleAll(context.Background(), src, jobs)
				var ie *apperrors.IntegrityError
				if !errors.As(err, &ie) {
					t.Fatalf("AssembleAll(jobs=%d) error = %v, want IntegrityError", jobs, err)
				}
				if ie.Table != tt.table {
					t.Errorf("Table = %q, want %q", ie.Table, tt.table)
				}
			}
		})
	}
}

func TestAssembleAllCanceled(t *testing.T) {
	src := openSource(t, multiBook())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AssembleAll(ctx, src, 2); err == nil {
		t.Error("AssembleAll() with canceled context succeeded")
	}
}

func TestSum(t *testing.T) {
	src := openSource(t, multiBook())
	books, err := AssembleAll(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := Sum(books)
	want := Totals{Books: 5, Chapters: 10, Verses: 20, Titles: 20, QuestionGroups: 10, Questions: 30}
	if got != want {
		t.Errorf("Sum() = %+v, want %+v", got, want)
	}
}

// multiBook builds five books of two chapters with two verses each. The
// first verse of every chapter has a title with three questions; the second
// has a title without questions.
func multiBook() fixture.Data {
	var d fixture.Data
	var verseID, titleID, questionID int64
	for b := int64(1); b <= 5; b++ {
		d.Books = append(d.Books, fixture.Book{ID: b, Name: "Book " + string(rune('A'+b-1))})
		for ch := int64(1); ch <= 2; ch++ {
			for n := int64(1); n <= 2; n++ {
				verseID++
				d.Verses = append(d.Verses, fixture.Verse{ID: verseID, BookID: b, Chapter: ch, Number: n, Text: "v"})
				titleID++
				d.Titles = append(d.Titles, fixture.Title{ID: titleID, VerseID: verseID, Text: "t"})
				if n == 1 {
					for range 3 {
						questionID++
						d.Questions = append(d.Questions, fixture.Question{ID: questionID, TitleID: titleID, Text: "q"})
					}
				}
			}
		}
	}
	return d
}
