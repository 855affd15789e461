package hierarchy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
)

// Assemble builds the tree of one book. A book without verses yields an
// empty chapter list and zero counts.
func Assemble(ctx context.Context, src source.Accessor, bookID int64) (*Book, error) {
	info, err := source.BookByID(ctx, src, bookID)
	if err != nil {
		return nil, err
	}
	return assembleBook(ctx, src, info)
}

// AssembleAll builds every book in book order. With jobs > 1 up to jobs
// books are assembled at once; the result order does not change. The tree
// must account for every verse, title and question row; rows whose parent
// does not exist are an IntegrityError.
func AssembleAll(ctx context.Context, src source.Accessor, jobs int) ([]*Book, error) {
	out, err := assembleAll(ctx, src, jobs)
	if err != nil {
		return nil, err
	}
	if err := reconcile(ctx, src, Sum(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func assembleAll(ctx context.Context, src source.Accessor, jobs int) ([]*Book, error) {
	books, err := source.Books(ctx, src)
	if err != nil {
		return nil, err
	}

	out := make([]*Book, len(books))
	if jobs <= 1 {
		for i, b := range books {
			tree, err := assembleBook(ctx, src, b)
			if err != nil {
				return nil, err
			}
			out[i] = tree
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, b := range books {
		g.Go(func() error {
			tree, err := assembleBook(gctx, src, b)
			if err != nil {
				return err
			}
			out[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func assembleBook(ctx context.Context, src source.Accessor, info source.Book) (*Book, error) {
	book := &Book{Book: info, Chapters: []*Chapter{}}

	numbers, err := source.ChapterNumbers(ctx, src, info.ID)
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", info.ID, err)
	}

	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chapter, err := assembleChapter(ctx, src, info, n)
		if err != nil {
			return nil, fmt.Errorf("book %d chapter %d: %w", info.ID, n, err)
		}
		book.Chapters = append(book.Chapters, chapter)
		book.Stats.add(chapter.Stats)
	}

	logging.LoggerFromContext(ctx).Debug("book_assembled",
		"book_id", info.ID,
		"chapters", book.Stats.ChapterCount,
		"verses", book.Stats.VerseCount,
		"questions", book.Stats.QuestionCount,
	)
	return book, nil
}

func assembleChapter(ctx context.Context, src source.Accessor, info source.Book, number int64) (*Chapter, error) {
	verses, err := source.Verses(ctx, src, info.ID, number)
	if err != nil {
		return nil, err
	}
	if len(verses) == 0 {
		return nil, integrity(source.TableVerses, info, "", "chapter listed but has no verses")
	}

	chapter := &Chapter{Number: number, Verses: make([]*Verse, 0, len(verses))}
	seen := make(map[int64]int64, len(verses))
	for _, v := range verses {
		entity := fmt.Sprintf("verse %d", v.ID)
		if v.BookID != info.ID || v.Chapter != number {
			return nil, integrity(source.TableVerses, info, entity,
				fmt.Sprintf("belongs to book %d chapter %d", v.BookID, v.Chapter))
		}
		if other, dup := seen[v.Number]; dup {
			return nil, integrity(source.TableVerses, info, entity,
				fmt.Sprintf("repeats verse number %d of verse %d", v.Number, other))
		}
		seen[v.Number] = v.ID

		verse, err := assembleVerse(ctx, src, info, v)
		if err != nil {
			return nil, err
		}
		chapter.Verses = append(chapter.Verses, verse)
		chapter.Stats.add(verse.Stats)
	}
	return chapter, nil
}

func assembleVerse(ctx context.Context, src source.Accessor, info source.Book, v source.Verse) (*Verse, error) {
	titles, err := source.Titles(ctx, src, v.ID)
	if err != nil {
		return nil, err
	}

	verse := &Verse{Verse: v, Titles: make([]*Title, 0, len(titles))}
	for _, t := range titles {
		if t.VerseID != v.ID {
			return nil, integrity(source.TableTitles, info, fmt.Sprintf("title %d", t.ID),
				fmt.Sprintf("belongs to verse %d, not %d", t.VerseID, v.ID))
		}

		questions, err := source.Questions(ctx, src, t.ID)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if q.TitleID != t.ID {
				return nil, integrity(source.TableQuestions, info, fmt.Sprintf("question %d", q.ID),
					fmt.Sprintf("belongs to title %d, not %d", q.TitleID, t.ID))
			}
		}

		verse.Titles = append(verse.Titles, &Title{Title: t, Questions: questions})
		verse.Stats.TitleCount++
		verse.Stats.QuestionCount += len(questions)
		if len(questions) > 0 {
			verse.Stats.QuestionGroupCount++
		}
	}
	return verse, nil
}

// reconcile compares the tree totals with the row counts of the source
// tables. Children are fetched by parent id, so an orphan never shows up in
// the tree and only a count can reveal it.
func reconcile(ctx context.Context, src source.Accessor, t Totals) error {
	checks := []struct {
		table string
		got   int
	}{
		{source.TableVerses, t.Verses},
		{source.TableTitles, t.Titles},
		{source.TableQuestions, t.Questions},
	}
	for _, c := range checks {
		n, err := src.CountRows(ctx, c.table)
		if err != nil {
			return err
		}
		if c.got != n {
			return apperrors.NewIntegrity(c.table, "",
				fmt.Sprintf("%d of %d rows are not reachable from any book", n-c.got, n))
		}
	}
	return nil
}

func integrity(table string, info source.Book, entity, message string) error {
	err := apperrors.NewIntegrity(table, entity, message)
	err.Book = info.Name
	return err
}
