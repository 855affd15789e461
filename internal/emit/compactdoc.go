package emit

import (
	"context"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/TorahExport/internal/compact"
	"github.com/FocuswithJustin/TorahExport/internal/hierarchy"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

var englishSlugs = map[string]string{
	"בראשית": "genesis",
	"שמות":   "exodus",
	"ויקרא":  "leviticus",
	"במדבר":  "numbers",
	"דברים":  "deuteronomy",
}

// Slug returns the URL slug of a book name.
func Slug(name string) string {
	if s, ok := englishSlugs[name]; ok {
		return s
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// ChunkBase returns the artifact path of a compact book chunk without the
// codec suffix.
func ChunkBase(id int64) string {
	return fmt.Sprintf("%s/book_%d", stats.CategoryChunks, id)
}

// ChunkDocument builds the long-key form of a compact book chunk. A verse
// without questions has no "questions" key at all.
func ChunkDocument(b *hierarchy.Book) map[string]any {
	chapters := make([]any, 0, len(b.Chapters))
	for _, ch := range b.Chapters {
		verses := make([]any, 0, len(ch.Verses))
		for _, v := range ch.Verses {
			verse := map[string]any{
				"verse_number":    v.Number,
				"text":            v.Text,
				"total_questions": v.Stats.QuestionCount,
			}
			if v.Stats.QuestionCount > 0 {
				questions := make([]any, 0, v.Stats.QuestionCount)
				for _, g := range v.QuestionGroups() {
					for _, q := range g.Questions {
						questions = append(questions, map[string]any{
							"title":    g.Text,
							"question": q.Text,
						})
					}
				}
				verse["questions"] = questions
			}
			verses = append(verses, verse)
		}
		chapters = append(chapters, map[string]any{
			"chapter_number": ch.Number,
			"verses":         verses,
		})
	}
	return map[string]any{
		"id":            b.ID,
		"name":          b.Name,
		"chapter_count": b.Stats.ChapterCount,
		"chapters":      chapters,
	}
}

func emitCompact(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	books, err := env.Books(ctx)
	if err != nil {
		return st, err
	}

	index := make([]any, 0, len(books))
	for _, b := range books {
		chunk, err := compact.V1.Compact(compact.ScopeBook, ChunkDocument(b))
		if err != nil {
			return st, fmt.Errorf("book %d: %w", b.ID, err)
		}
		art, err := env.Writer.WriteCompressed(ChunkBase(b.ID), stats.CategoryChunks, chunk)
		if err != nil {
			return st, err
		}
		st = env.record(ctx, st, art, map[string]int{
			"chapters":  b.Stats.ChapterCount,
			"verses":    b.Stats.VerseCount,
			"questions": b.Stats.QuestionCount,
		})

		index = append(index, map[string]any{
			"id":             b.ID,
			"name":           b.Name,
			"slug":           Slug(b.Name),
			"chapter_count":  b.Stats.ChapterCount,
			"verse_count":    b.Stats.VerseCount,
			"question_count": b.Stats.QuestionCount,
			"file":           art.Path,
		})
	}

	doc, err := compact.V1.Compact(compact.ScopeIndex, map[string]any{
		"version":   compact.V1.Version,
		"timestamp": env.now().Unix(),
		"books":     index,
	})
	if err != nil {
		return st, fmt.Errorf("book index: %w", err)
	}
	art, err := env.Writer.WriteCompressed(stats.CategoryData+"/books", stats.CategoryData, doc)
	if err != nil {
		return st, err
	}
	st = env.record(ctx, st, art, map[string]int{"books": len(books)})
	return withTreeLevels(st, hierarchy.Sum(books)), nil
}
