// Package stats records what an export produced. Stats is a value: every
// emission step receives one and returns an updated copy, and Finalize turns
// the last copy into the manifest.
package stats

import (
	"maps"
	"slices"
)

// Level names for per-level record counts.
const (
	LevelBooks          = "books"
	LevelChapters       = "chapters"
	LevelVerses         = "verses"
	LevelTitles         = "titles"
	LevelQuestionGroups = "question_groups"
	LevelQuestions      = "questions"
	LevelParshiot       = "parshiot"
)

// Artifact describes one written file.
type Artifact struct {
	Path      string         `json:"path"` // slash separated, relative to the export root
	Category  string         `json:"category"`
	Encoding  string         `json:"encoding"` // "json" or "json+<codec>"
	SizeBytes int64          `json:"size_bytes"`
	SHA256    string         `json:"sha256"`
	BLAKE3    string         `json:"blake3"`
	Records   map[string]int `json:"records,omitempty"`
}

// Stats accumulates artifacts and record counts. The zero value is empty
// and ready to use.
type Stats struct {
	artifacts []Artifact
	tables    map[string]int
	levels    map[string]int
}

// New returns empty stats.
func New() Stats {
	return Stats{}
}

// WithArtifact returns a copy of s that also lists a. Writing the same path
// twice keeps the latest record.
func (s Stats) WithArtifact(a Artifact) Stats {
	out := s.clone()
	if i := slices.IndexFunc(out.artifacts, func(x Artifact) bool { return x.Path == a.Path }); i >= 0 {
		out.artifacts[i] = a
		return out
	}
	out.artifacts = append(out.artifacts, a)
	return out
}

// WithTableRows returns a copy of s with the row count of a source table.
func (s Stats) WithTableRows(table string, rows int) Stats {
	out := s.clone()
	if out.tables == nil {
		out.tables = make(map[string]int)
	}
	out.tables[table] = rows
	return out
}

// WithLevel returns a copy of s with the record count of a hierarchy level.
func (s Stats) WithLevel(level string, n int) Stats {
	out := s.clone()
	if out.levels == nil {
		out.levels = make(map[string]int)
	}
	out.levels[level] = n
	return out
}

func (s Stats) clone() Stats {
	return Stats{
		artifacts: slices.Clone(s.artifacts),
		tables:    maps.Clone(s.tables),
		levels:    maps.Clone(s.levels),
	}
}

// Artifacts returns the artifacts in the order they were written.
func (s Stats) Artifacts() []Artifact {
	return slices.Clone(s.artifacts)
}

// TotalFiles returns the number of artifacts.
func (s Stats) TotalFiles() int {
	return len(s.artifacts)
}

// TotalSize returns the summed size of all artifacts in bytes.
func (s Stats) TotalSize() int64 {
	var total int64
	for _, a := range s.artifacts {
		total += a.SizeBytes
	}
	return total
}

// TableRows returns the per-table row counts.
func (s Stats) TableRows() map[string]int {
	if s.tables == nil {
		return map[string]int{}
	}
	return maps.Clone(s.tables)
}

// Levels returns the per-level record counts.
func (s Stats) Levels() map[string]int {
	if s.levels == nil {
		return map[string]int{}
	}
	return maps.Clone(s.levels)
}

