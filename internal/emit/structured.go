package emit

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/TorahExport/internal/hierarchy"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// StructuredDocument is the full nested export.
type StructuredDocument struct {
	Metadata   StructuredMetadata `json:"metadata"`
	Books      []BookDocument     `json:"books"`
	Parshiot   []source.Row       `json:"parshiot"`
	Statistics Totals             `json:"statistics"`
}

// StructuredMetadata describes a structured document.
type StructuredMetadata struct {
	ExportDate     string `json:"export_date"`
	SourceDatabase string `json:"source_database"`
	Description    string `json:"description"`
}

// BookDocument is one book of the structured export.
type BookDocument struct {
	BookInfo   source.Row          `json:"book_info"`
	Chapters   []ChapterDocument   `json:"chapters"`
	Statistics hierarchy.BookStats `json:"statistics"`
}

// ChapterDocument is one chapter.
type ChapterDocument struct {
	ChapterNumber int64                  `json:"chapter_number"`
	Verses        []VerseDocument        `json:"verses"`
	Stats         hierarchy.ChapterStats `json:"stats"`
}

// VerseDocument is one verse. Titles lists every title row; QuestionGroups
// only the titles that have questions.
type VerseDocument struct {
	TorahID        int64                `json:"torah_id"`
	VerseNumber    int64                `json:"verse_number"`
	Text           string               `json:"text"`
	Titles         []source.Row         `json:"titles"`
	QuestionGroups []QuestionGroup      `json:"question_groups"`
	Stats          hierarchy.VerseStats `json:"stats"`
}

// QuestionGroup is a title with its questions.
type QuestionGroup struct {
	TitleInfo source.Row   `json:"title_info"`
	Questions []source.Row `json:"questions"`
}

// Totals are the corpus-wide counts of a structured document.
type Totals struct {
	TotalBooks          int `json:"total_books"`
	TotalChapters       int `json:"total_chapters"`
	TotalVerses         int `json:"total_verses"`
	TotalTitles         int `json:"total_titles"`
	TotalQuestionGroups int `json:"total_question_groups"`
	TotalQuestions      int `json:"total_questions"`
	TotalParshiot       int `json:"total_parshiot"`
}

// BuildBook projects an assembled book onto its document form.
func BuildBook(b *hierarchy.Book) BookDocument {
	doc := BookDocument{
		BookInfo:   b.Row,
		Chapters:   make([]ChapterDocument, 0, len(b.Chapters)),
		Statistics: b.Stats,
	}
	for _, ch := range b.Chapters {
		chDoc := ChapterDocument{
			ChapterNumber: ch.Number,
			Verses:        make([]VerseDocument, 0, len(ch.Verses)),
			Stats:         ch.Stats,
		}
		for _, v := range ch.Verses {
			vDoc := VerseDocument{
				TorahID:        v.ID,
				VerseNumber:    v.Number,
				Text:           v.Text,
				Titles:         make([]source.Row, 0, len(v.Titles)),
				QuestionGroups: []QuestionGroup{},
				Stats:          v.Stats,
			}
			for _, t := range v.Titles {
				vDoc.Titles = append(vDoc.Titles, t.Row)
			}
			for _, g := range v.QuestionGroups() {
				questions := make([]source.Row, 0, len(g.Questions))
				for _, q := range g.Questions {
					questions = append(questions, q.Row)
				}
				vDoc.QuestionGroups = append(vDoc.QuestionGroups, QuestionGroup{TitleInfo: g.Row, Questions: questions})
			}
			chDoc.Verses = append(chDoc.Verses, vDoc)
		}
		doc.Chapters = append(doc.Chapters, chDoc)
	}
	return doc
}

// BuildStructured assembles the structured document from the tree and the
// parsha rows.
func BuildStructured(books []*hierarchy.Book, parshiot []source.Row, meta StructuredMetadata) StructuredDocument {
	doc := StructuredDocument{
		Metadata: meta,
		Books:    make([]BookDocument, 0, len(books)),
		Parshiot: parshiot,
	}
	for _, b := range books {
		doc.Books = append(doc.Books, BuildBook(b))
	}
	t := hierarchy.Sum(books)
	doc.Statistics = Totals{
		TotalBooks:          t.Books,
		TotalChapters:       t.Chapters,
		TotalVerses:         t.Verses,
		TotalTitles:         t.Titles,
		TotalQuestionGroups: t.QuestionGroups,
		TotalQuestions:      t.Questions,
		TotalParshiot:       len(parshiot),
	}
	return doc
}

func (e *Env) structured(ctx context.Context) (StructuredDocument, error) {
	books, err := e.Books(ctx)
	if err != nil {
		return StructuredDocument{}, err
	}
	parshiot, err := e.Source.FetchJoin(ctx, source.JoinParsha)
	if err != nil {
		return StructuredDocument{}, err
	}
	return BuildStructured(books, parshiot, StructuredMetadata{
		ExportDate:     e.timestamp(),
		SourceDatabase: e.SourceName,
		Description:    "Books, chapters, verses, titles and questions with per-level statistics",
	}), nil
}

// withTreeLevels records the per-level counts of the assembled tree.
func withTreeLevels(st stats.Stats, t hierarchy.Totals) stats.Stats {
	return st.
		WithLevel(stats.LevelBooks, t.Books).
		WithLevel(stats.LevelChapters, t.Chapters).
		WithLevel(stats.LevelVerses, t.Verses).
		WithLevel(stats.LevelTitles, t.Titles).
		WithLevel(stats.LevelQuestionGroups, t.QuestionGroups).
		WithLevel(stats.LevelQuestions, t.Questions)
}

func emitStructured(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	books, err := env.Books(ctx)
	if err != nil {
		return st, err
	}
	doc, err := env.structured(ctx)
	if err != nil {
		return st, err
	}
	art, err := env.Writer.WriteCompressed(stats.CategoryStructured+"/complete_torah_structured.json", stats.CategoryStructured, doc)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{
		"books":     doc.Statistics.TotalBooks,
		"verses":    doc.Statistics.TotalVerses,
		"questions": doc.Statistics.TotalQuestions,
	})
	logging.LoggerFromContext(ctx).Info("structured export written",
		"books", doc.Statistics.TotalBooks,
		"chapters", doc.Statistics.TotalChapters,
		"verses", doc.Statistics.TotalVerses,
		"questions", doc.Statistics.TotalQuestions,
	)
	st = withTreeLevels(st, hierarchy.Sum(books))
	return st.WithLevel(stats.LevelParshiot, doc.Statistics.TotalParshiot), nil
}

// BookExport is a per-book document in books_separate/.
type BookExport struct {
	BookDocument
	ExportInfo BookExportInfo `json:"export_info"`
}

// BookExportInfo identifies a per-book document.
type BookExportInfo struct {
	ExportedAt string `json:"exported_at"`
	BookName   string `json:"book_name"`
	BookID     int64  `json:"book_id"`
}

// BookFileBase returns the artifact path of a per-book document without
// the codec suffix.
func BookFileBase(id int64, name string) string {
	clean, err := validation.SanitizeFilename(name)
	if err != nil {
		return fmt.Sprintf("%s/book_%d.json", stats.CategoryBooks, id)
	}
	return fmt.Sprintf("%s/book_%d_%s.json", stats.CategoryBooks, id, clean)
}

func emitBooks(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	books, err := env.Books(ctx)
	if err != nil {
		return st, err
	}
	exported := env.timestamp()
	for _, b := range books {
		doc := BookExport{
			BookDocument: BuildBook(b),
			ExportInfo: BookExportInfo{
				ExportedAt: exported,
				BookName:   b.Name,
				BookID:     b.ID,
			},
		}
		art, err := env.Writer.WriteCompressed(BookFileBase(b.ID, b.Name), stats.CategoryBooks, doc)
		if err != nil {
			return st, fmt.Errorf("book %d: %w", b.ID, err)
		}
		st = env.record(ctx, st, art, map[string]int{
			"chapters":  b.Stats.ChapterCount,
			"verses":    b.Stats.VerseCount,
			"questions": b.Stats.QuestionCount,
		})
	}
	return withTreeLevels(st, hierarchy.Sum(books)), nil
}
