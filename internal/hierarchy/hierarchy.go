// Package hierarchy assembles the Book → Chapter → Verse → Title → Question
// tree from the source and rolls counts up from verses to books.
//
// The tree keeps every title. Site-facing documents use QuestionGroups,
// which leaves out titles that have no questions; raw views use Titles.
package hierarchy

import (
	"github.com/FocuswithJustin/TorahExport/internal/source"
)

// VerseStats are the counts of one verse.
type VerseStats struct {
	TitleCount         int `json:"title_count"`
	QuestionGroupCount int `json:"question_group_count"`
	QuestionCount      int `json:"question_count"`
}

// ChapterStats are the counts of one chapter.
type ChapterStats struct {
	VerseCount         int `json:"verse_count"`
	TitleCount         int `json:"title_count"`
	QuestionGroupCount int `json:"question_group_count"`
	QuestionCount      int `json:"question_count"`
}

// BookStats are the counts of one book.
type BookStats struct {
	ChapterCount       int `json:"chapter_count"`
	VerseCount         int `json:"verse_count"`
	TitleCount         int `json:"title_count"`
	QuestionGroupCount int `json:"question_group_count"`
	QuestionCount      int `json:"question_count"`
}

// Book is an assembled book.
type Book struct {
	source.Book
	Chapters []*Chapter
	Stats    BookStats
}

// Chapter is the set of a book's verses sharing a chapter number.
type Chapter struct {
	Number int64
	Verses []*Verse
	Stats  ChapterStats
}

// Verse is a verse with all of its titles.
type Verse struct {
	source.Verse
	Titles []*Title
	Stats  VerseStats
}

// Title is a title with its questions, possibly none.
type Title struct {
	source.Title
	Questions []source.Question
}

// QuestionGroups returns the titles that have at least one question.
func (v *Verse) QuestionGroups() []*Title {
	groups := make([]*Title, 0, len(v.Titles))
	for _, t := range v.Titles {
		if len(t.Questions) > 0 {
			groups = append(groups, t)
		}
	}
	return groups
}

func (c *ChapterStats) add(v VerseStats) {
	c.VerseCount++
	c.TitleCount += v.TitleCount
	c.QuestionGroupCount += v.QuestionGroupCount
	c.QuestionCount += v.QuestionCount
}

func (b *BookStats) add(c ChapterStats) {
	b.ChapterCount++
	b.VerseCount += c.VerseCount
	b.TitleCount += c.TitleCount
	b.QuestionGroupCount += c.QuestionGroupCount
	b.QuestionCount += c.QuestionCount
}

// Totals are counts summed over several books.
type Totals struct {
	Books          int
	Chapters       int
	Verses         int
	Titles         int
	QuestionGroups int
	Questions      int
}

// Sum totals the counts of books.
func Sum(books []*Book) Totals {
	t := Totals{Books: len(books)}
	for _, b := range books {
		t.Chapters += b.Stats.ChapterCount
		t.Verses += b.Stats.VerseCount
		t.Titles += b.Stats.TitleCount
		t.QuestionGroups += b.Stats.QuestionGroupCount
		t.Questions += b.Stats.QuestionCount
	}
	return t
}
