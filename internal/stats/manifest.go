package stats

import (
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// namespace scopes export ids to this exporter.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/FocuswithJustin/TorahExport"))

// ExportID derives the export id from the source digest. The same source
// always gets the same id.
func ExportID(sourceSHA256 string) string {
	return uuid.NewSHA1(namespace, []byte(sourceSHA256)).String()
}

// RunInfo is the run-level context the manifest reports.
type RunInfo struct {
	Created           time.Time
	ExporterVersion   string
	SourceDatabase    string
	SourceSHA256      string
	ExportDirectory   string
	Mode              string
	Emitters          []string
	Codec             string
	AliasTableVersion string
	TupleVersion      string
}

// Manifest is the document written to manifest.json.
type Manifest struct {
	ExportInfo       ExportInfo        `json:"export_info"`
	FilesStructure   map[string]string `json:"files_structure"`
	RecommendedUsage map[string]string `json:"recommended_usage"`
	Artifacts        []Artifact        `json:"artifacts"`
	Statistics       Statistics        `json:"statistics"`
}

// ExportInfo is the summary block of the manifest.
type ExportInfo struct {
	Created           string   `json:"created"`
	ExportID          string   `json:"export_id"`
	ExporterVersion   string   `json:"exporter_version"`
	SourceDatabase    string   `json:"source_database"`
	SourceSHA256      string   `json:"source_sha256"`
	ExportDirectory   string   `json:"export_directory"`
	Mode              string   `json:"mode"`
	Emitters          []string `json:"emitters"`
	Codec             string   `json:"codec"`
	TotalFiles        int      `json:"total_files"`
	TotalSizeBytes    int64    `json:"total_size_bytes"`
	TotalSizeHuman    string   `json:"total_size_human"`
	AliasTableVersion string   `json:"alias_table_version"`
	TupleVersion      string   `json:"tuple_version"`
}

// Statistics holds the record counts.
type Statistics struct {
	Tables map[string]int `json:"tables"`
	Levels map[string]int `json:"levels"`
}

// Finalize builds the manifest from the final stats.
func Finalize(s Stats, info RunInfo) Manifest {
	artifacts := s.Artifacts()
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	emitters := slices.Clone(info.Emitters)
	if emitters == nil {
		emitters = []string{}
	}

	return Manifest{
		ExportInfo: ExportInfo{
			Created:           info.Created.UTC().Format(time.RFC3339),
			ExportID:          ExportID(info.SourceSHA256),
			ExporterVersion:   info.ExporterVersion,
			SourceDatabase:    info.SourceDatabase,
			SourceSHA256:      info.SourceSHA256,
			ExportDirectory:   info.ExportDirectory,
			Mode:              info.Mode,
			Emitters:          emitters,
			Codec:             info.Codec,
			TotalFiles:        s.TotalFiles(),
			TotalSizeBytes:    s.TotalSize(),
			TotalSizeHuman:    humanize.Bytes(uint64(s.TotalSize())),
			AliasTableVersion: info.AliasTableVersion,
			TupleVersion:      info.TupleVersion,
		},
		FilesStructure:   filesStructure(artifacts),
		RecommendedUsage: recommendedUsage(artifacts),
		Artifacts:        artifacts,
		Statistics: Statistics{
			Tables: s.TableRows(),
			Levels: s.Levels(),
		},
	}
}
