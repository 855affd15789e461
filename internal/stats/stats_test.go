package stats

import (
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestStatsIsAValue(t *testing.T) {
	base := New().WithArtifact(Artifact{Path: "tables/a.json", Category: CategoryTables, SizeBytes: 10})
	next := base.WithArtifact(Artifact{Path: "data/search.gz", Category: CategoryData, SizeBytes: 5}).
		WithTableRows("tbl_Sefer", 5).
		WithLevel(LevelBooks, 5)

	if base.TotalFiles() != 1 || base.TotalSize() != 10 {
		t.Errorf("base changed: %d files, %d bytes", base.TotalFiles(), base.TotalSize())
	}
	if len(base.TableRows()) != 0 || len(base.Levels()) != 0 {
		t.Error("base gained counts")
	}
	if next.TotalFiles() != 2 || next.TotalSize() != 15 {
		t.Errorf("next = %d files, %d bytes", next.TotalFiles(), next.TotalSize())
	}
	if next.TableRows()["tbl_Sefer"] != 5 || next.Levels()[LevelBooks] != 5 {
		t.Errorf("counts = %v %v", next.TableRows(), next.Levels())
	}
}

func TestWithArtifactReplacesSamePath(t *testing.T) {
	s := New().
		WithArtifact(Artifact{Path: "data/search.gz", SizeBytes: 1}).
		WithArtifact(Artifact{Path: "data/search.gz", SizeBytes: 2})
	if s.TotalFiles() != 1 || s.TotalSize() != 2 {
		t.Errorf("got %d files, %d bytes, want 1 file, 2 bytes", s.TotalFiles(), s.TotalSize())
	}
}

func TestFinalize(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 2*3600))
	s := New().
		WithArtifact(Artifact{Path: "data/search.gz", Category: CategoryData, SizeBytes: 1500}).
		WithArtifact(Artifact{Path: "chunks/book_1.gz", Category: CategoryChunks, SizeBytes: 500}).
		WithLevel(LevelParshiot, 54)

	m := Finalize(s, RunInfo{
		Created:      created,
		SourceSHA256: "abc",
		Mode:         "optimize",
		Emitters:     []string{"compact", "search"},
		TupleVersion: "1",
	})

	if m.ExportInfo.Created != "2024-03-01T10:00:00Z" {
		t.Errorf("Created = %q", m.ExportInfo.Created)
	}
	if m.ExportInfo.TotalFiles != 2 || m.ExportInfo.TotalFiles != len(m.Artifacts) {
		t.Errorf("TotalFiles = %d, artifacts = %d", m.ExportInfo.TotalFiles, len(m.Artifacts))
	}
	if m.ExportInfo.TotalSizeBytes != 2000 || m.ExportInfo.TotalSizeHuman != "2.0 kB" {
		t.Errorf("size = %d (%s)", m.ExportInfo.TotalSizeBytes, m.ExportInfo.TotalSizeHuman)
	}

	wantFiles := map[string]string{
		"data/":   "positional verse tuples",
		"chunks/": "one compact document per book with aliased keys",
	}
	if diff := cmp.Diff(wantFiles, m.FilesStructure); diff != "" {
		t.Errorf("files_structure mismatch (-want +got):\n%s", diff)
	}

	// data/ exists but holds neither the book index nor the question
	// tuples, so neither usage that relies on them applies.
	if len(m.RecommendedUsage) != 0 {
		t.Errorf("recommended_usage = %v, want none", m.RecommendedUsage)
	}
	if m.Statistics.Levels[LevelParshiot] != 54 {
		t.Errorf("levels = %v", m.Statistics.Levels)
	}
}

func TestFinalizeUsageFollowsArtifacts(t *testing.T) {
	tests := []struct {
		name      string
		paths     []string
		wantFiles map[string]string
		wantUsage []string
	}{
		{
			name:  "compact only",
			paths: []string{"chunks/book_1.gz", "data/books.gz"},
			wantFiles: map[string]string{
				"chunks/": "one compact document per book with aliased keys",
				"data/":   "compact book index",
			},
			wantUsage: []string{"for_site"},
		},
		{
			name:  "search only",
			paths: []string{"complete/search_optimized.json", "data/search.gz", "data/questions.gz"},
			wantFiles: map[string]string{
				"complete/": "one flat search row per question",
				"data/":     "positional verse tuples; positional question tuples",
			},
			wantUsage: []string{"for_search"},
		},
		{
			name:  "parsha without complete export",
			paths: []string{"complete/parshiot_complete.json", "data/parshiot.xz"},
			wantFiles: map[string]string{
				"complete/": "parsha divisions with alternates",
				"data/":     "positional parsha tuples",
			},
			wantUsage: []string{"for_parsha"},
		},
		{
			name:  "raw",
			paths: []string{"tables/tbl_Sefer.json", "backup/all_tables_raw.json.gz"},
			wantFiles: map[string]string{
				"tables/": "each source table in its own pretty-printed file",
				"backup/": "every raw table in one compressed file",
			},
			wantUsage: []string{"for_analysis", "for_restore"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for _, p := range tt.paths {
				dir, _, _ := strings.Cut(p, "/")
				s = s.WithArtifact(Artifact{Path: p, Category: dir})
			}
			m := Finalize(s, RunInfo{})

			if diff := cmp.Diff(tt.wantFiles, m.FilesStructure); diff != "" {
				t.Errorf("files_structure mismatch (-want +got):\n%s", diff)
			}
			got := slices.Sorted(maps.Keys(m.RecommendedUsage))
			if diff := cmp.Diff(tt.wantUsage, got); diff != "" {
				t.Errorf("recommended_usage keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFinalizeEmpty(t *testing.T) {
	m := Finalize(New(), RunInfo{})
	if m.Artifacts == nil || m.ExportInfo.Emitters == nil {
		t.Error("empty slices should encode as [] not null")
	}
	if len(m.FilesStructure) != 0 || len(m.RecommendedUsage) != 0 {
		t.Errorf("unexpected entries: %v %v", m.FilesStructure, m.RecommendedUsage)
	}
}

func TestExportID(t *testing.T) {
	a := ExportID("digest-1")
	if a != ExportID("digest-1") {
		t.Error("ExportID is not deterministic")
	}
	if a == ExportID("digest-2") {
		t.Error("different digests share an id")
	}
	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", a, err)
	}
	if id.Version() != 5 {
		t.Errorf("Version() = %d, want 5", id.Version())
	}
}
