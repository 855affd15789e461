// Package fixture builds small SQLite source databases for tests.
package fixture

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/TorahExport/core/sqlite"
)

// Book is a tbl_Sefer row.
type Book struct {
	ID   int64
	Name string
}

// Verse is a tbl_Torah row.
type Verse struct {
	ID      int64
	BookID  int64
	Chapter int64
	Number  int64
	Text    string
}

// Title is a tbl_Title row.
type Title struct {
	ID      int64
	VerseID int64
	Text    string
}

// Question is a tbl_Question row.
type Question struct {
	ID      int64
	TitleID int64
	Text    string
}

// Parsha is a tbl_Parsha (or Parshiot) row.
type Parsha struct {
	ID           int64
	Name         string
	BookID       int64
	StartChapter int64
	StartVerse   int64
}

// Data is the content of a fixture database.
type Data struct {
	Books     []Book
	Verses    []Verse
	Titles    []Title
	Questions []Question
	Parshiot  []Parsha

	// AltParshiot fills the optional Parshiot table. Nil leaves the table out.
	AltParshiot []Parsha
}

const schema = `
CREATE TABLE tbl_Sefer (ID INTEGER PRIMARY KEY, SeferName TEXT NOT NULL);
CREATE TABLE tbl_Torah (ID INTEGER PRIMARY KEY, Sefer INTEGER NOT NULL, Perek INTEGER NOT NULL, PasukNum INTEGER NOT NULL, Pasuk TEXT);
CREATE TABLE tbl_Title (ID INTEGER PRIMARY KEY, TorahID INTEGER NOT NULL, Title TEXT);
CREATE TABLE tbl_Question (ID INTEGER PRIMARY KEY, TitleID INTEGER NOT NULL, Question TEXT);
CREATE TABLE tbl_Parsha (ID INTEGER PRIMARY KEY, ParshaName TEXT, SeferID INTEGER, StartPerek INTEGER, StartPasuk INTEGER);
`

const altSchema = `CREATE TABLE Parshiot (ID INTEGER PRIMARY KEY, ParshaName TEXT, SeferID INTEGER, StartPerek INTEGER, StartPasuk INTEGER);`

// Genesis returns a one-book corpus: chapter 1 has a verse with one title
// and two questions and a verse with no titles; chapter 2 has a verse whose
// only title has no questions.
func Genesis() Data {
	return Data{
		Books: []Book{{ID: 1, Name: "Genesis"}},
		Verses: []Verse{
			{ID: 1, BookID: 1, Chapter: 1, Number: 1, Text: "text A"},
			{ID: 2, BookID: 1, Chapter: 1, Number: 2, Text: "text B"},
			{ID: 3, BookID: 1, Chapter: 2, Number: 1, Text: "text C"},
		},
		Titles: []Title{
			{ID: 1, VerseID: 1, Text: "Creation"},
			{ID: 2, VerseID: 3, Text: "Unanswered"},
		},
		Questions: []Question{
			{ID: 1, TitleID: 1, Text: "Q1"},
			{ID: 2, TitleID: 1, Text: "Q2"},
		},
		Parshiot: []Parsha{
			{ID: 1, Name: "Bereshit", BookID: 1, StartChapter: 1, StartVerse: 1},
		},
	}
}

// Write creates a database at path holding d.
func Write(path string, d Data) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if d.AltParshiot != nil {
		if _, err := tx.Exec(altSchema); err != nil {
			return fmt.Errorf("create Parshiot: %w", err)
		}
	}

	for _, b := range d.Books {
		if err := insert(tx, `INSERT INTO tbl_Sefer (ID, SeferName) VALUES (?, ?)`, b.ID, b.Name); err != nil {
			return err
		}
	}
	for _, v := range d.Verses {
		if err := insert(tx, `INSERT INTO tbl_Torah (ID, Sefer, Perek, PasukNum, Pasuk) VALUES (?, ?, ?, ?, ?)`,
			v.ID, v.BookID, v.Chapter, v.Number, v.Text); err != nil {
			return err
		}
	}
	for _, t := range d.Titles {
		if err := insert(tx, `INSERT INTO tbl_Title (ID, TorahID, Title) VALUES (?, ?, ?)`, t.ID, t.VerseID, t.Text); err != nil {
			return err
		}
	}
	for _, q := range d.Questions {
		if err := insert(tx, `INSERT INTO tbl_Question (ID, TitleID, Question) VALUES (?, ?, ?)`, q.ID, q.TitleID, q.Text); err != nil {
			return err
		}
	}
	for _, p := range d.Parshiot {
		if err := insertParsha(tx, "tbl_Parsha", p); err != nil {
			return err
		}
	}
	for _, p := range d.AltParshiot {
		if err := insertParsha(tx, "Parshiot", p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertParsha(tx *sql.Tx, table string, p Parsha) error {
	query := fmt.Sprintf(`INSERT INTO %s (ID, ParshaName, SeferID, StartPerek, StartPasuk) VALUES (?, ?, ?, ?, ?)`, table)
	return insert(tx, query, p.ID, p.Name, p.BookID, p.StartChapter, p.StartVerse)
}

func insert(tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("%s: %w", query, err)
	}
	return nil
}

// Create writes d to torah.db in a fresh temporary directory and returns
// its path.
func Create(tb testing.TB, d Data) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "torah.db")
	if err := Write(path, d); err != nil {
		tb.Fatalf("fixture: %v", err)
	}
	return path
}

// Exec runs a statement against the fixture at path, for tests that need
// to break the corpus in ways Data cannot express.
func Exec(tb testing.TB, path, query string, args ...any) {
	tb.Helper()
	db, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("fixture: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(query, args...); err != nil {
		tb.Fatalf("fixture: %s: %v", query, err)
	}
}
