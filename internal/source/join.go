package source

// Join names one of the fixed joins.
type Join string

const (
	// JoinParsha is tbl_Parsha joined with book names.
	JoinParsha Join = "parsha"
	// JoinParshaAlternate is the optional Parshiot table joined with book
	// names. A missing Parshiot table yields ErrOptionalTableMissing.
	JoinParshaAlternate Join = "parsha_alternate"
	// JoinVerseSearch is every verse with its book name.
	JoinVerseSearch Join = "verse_search"
	// JoinQuestionSearch is every question with its title and verse location.
	JoinQuestionSearch Join = "question_search"
)

type joinDef struct {
	tables   []string
	optional string
	query    string
}

var joins = map[Join]joinDef{
	JoinParsha: {
		tables: []string{TableParshiot, TableBooks},
		query: `SELECT p.*, s.SeferName
			FROM "tbl_Parsha" p
			JOIN "tbl_Sefer" s ON p.SeferID = s.ID
			ORDER BY p.ID`,
	},
	JoinParshaAlternate: {
		tables:   []string{TableParshiotAlt, TableBooks},
		optional: TableParshiotAlt,
		query: `SELECT par.*, s.SeferName
			FROM "Parshiot" par
			JOIN "tbl_Sefer" s ON par.SeferID = s.ID
			ORDER BY par.ID`,
	},
	JoinVerseSearch: {
		tables: []string{TableVerses, TableBooks},
		query: `SELECT
				tor.ID AS torah_id,
				tor.Sefer AS book_id,
				s.SeferName AS book_name,
				tor.Perek AS chapter,
				tor.PasukNum AS verse,
				tor.Pasuk AS text
			FROM "tbl_Torah" tor
			JOIN "tbl_Sefer" s ON tor.Sefer = s.ID
			ORDER BY tor.Sefer, tor.Perek, tor.PasukNum, tor.ID`,
	},
	JoinQuestionSearch: {
		tables: []string{TableQuestions, TableTitles, TableVerses, TableBooks},
		query: `SELECT
				q.ID AS question_id,
				q.Question AS question_text,
				t.Title AS title,
				t.TorahID AS torah_id,
				tor.Sefer AS book_id,
				s.SeferName AS book_name,
				tor.Perek AS chapter,
				tor.PasukNum AS verse
			FROM "tbl_Question" q
			JOIN "tbl_Title" t ON q.TitleID = t.ID
			JOIN "tbl_Torah" tor ON t.TorahID = tor.ID
			JOIN "tbl_Sefer" s ON tor.Sefer = s.ID
			ORDER BY s.ID, tor.Perek, tor.PasukNum, q.ID`,
	},
}
