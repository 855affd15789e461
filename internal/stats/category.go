package stats

import (
	"slices"
	"strings"
)

// Artifact categories. Each is also the directory its files are written to.
const (
	CategoryTables     = "tables"
	CategoryBackup     = "backup"
	CategoryStructured = "structured"
	CategoryBooks      = "books_separate"
	CategoryComplete   = "complete"
	CategoryData       = "data"
	CategoryChunks     = "chunks"
)

// Categories lists every category in canonical order.
var Categories = []string{
	CategoryTables,
	CategoryBackup,
	CategoryStructured,
	CategoryBooks,
	CategoryComplete,
	CategoryData,
	CategoryChunks,
}

// contents describes artifacts by path prefix. A category's files_structure
// entry joins the descriptions of the prefixes an artifact matched.
var contents = []struct {
	prefix string
	text   string
}{
	{"tables/", "each source table in its own pretty-printed file"},
	{"backup/all_tables_raw.json", "every raw table in one compressed file"},
	{"structured/complete_torah_structured.json", "the complete Book/Chapter/Verse/Title/Question tree with statistics"},
	{"books_separate/", "one compressed document per book"},
	{"complete/torah_complete_export.json", "raw tables and the structured tree in one file"},
	{"complete/parshiot_complete.json", "parsha divisions with alternates"},
	{"complete/search_optimized.json", "one flat search row per question"},
	{"data/books.", "compact book index"},
	{"data/search.", "positional verse tuples"},
	{"data/questions.", "positional question tuples"},
	{"data/parshiot.", "positional parsha tuples"},
	{"chunks/", "one compact document per book with aliased keys"},
}

// usage is the recommended-usage block. An entry appears in the manifest
// when every path prefix it needs matched an artifact.
var usage = []struct {
	key   string
	text  string
	needs []string
}{
	{"for_backup", "complete/torah_complete_export.json holds raw tables and the structured tree in one file",
		[]string{"complete/torah_complete_export.json"}},
	{"for_restore", "backup/all_tables_raw.json restores every table row for row",
		[]string{"backup/all_tables_raw.json"}},
	{"for_development", "structured/complete_torah_structured.json for the nested tree",
		[]string{"structured/complete_torah_structured.json"}},
	{"for_books", "books_separate/ loads one book at a time",
		[]string{"books_separate/"}},
	{"for_analysis", "tables/ for per-table inspection",
		[]string{"tables/"}},
	{"for_parsha", "complete/parshiot_complete.json lists every parsha with its alternates",
		[]string{"complete/parshiot_complete.json"}},
	{"for_site", "data/books plus chunks/ for fast page loads",
		[]string{"data/books.", "chunks/"}},
	{"for_search", "data/search and data/questions are positional tuple indexes",
		[]string{"data/search.", "data/questions."}},
}

// matched returns the prefixes of contents that some artifact path starts
// with.
func matched(artifacts []Artifact) map[string]bool {
	out := map[string]bool{}
	for _, c := range contents {
		if slices.ContainsFunc(artifacts, func(a Artifact) bool { return strings.HasPrefix(a.Path, c.prefix) }) {
			out[c.prefix] = true
		}
	}
	return out
}

// filesStructure describes each produced category by what it actually
// holds.
func filesStructure(artifacts []Artifact) map[string]string {
	found := matched(artifacts)
	texts := map[string][]string{}
	for _, c := range contents {
		if found[c.prefix] {
			dir, _, _ := strings.Cut(c.prefix, "/")
			texts[dir] = append(texts[dir], c.text)
		}
	}
	files := make(map[string]string, len(texts))
	for dir, t := range texts {
		files[dir+"/"] = strings.Join(t, "; ")
	}
	return files
}

// recommendedUsage keeps the usage entries whose artifacts were all
// produced.
func recommendedUsage(artifacts []Artifact) map[string]string {
	found := matched(artifacts)
	out := map[string]string{}
	for _, u := range usage {
		if !slices.ContainsFunc(u.needs, func(p string) bool { return !found[p] }) {
			out[u.key] = u.text
		}
	}
	return out
}
