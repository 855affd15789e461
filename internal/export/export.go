// Package export runs an export end to end: it opens the source, prepares
// the output directory, runs the selected emitters in order, and writes the
// manifest.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/TorahExport/core/cas"
	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/artifact"
	"github.com/FocuswithJustin/TorahExport/internal/compact"
	"github.com/FocuswithJustin/TorahExport/internal/config"
	"github.com/FocuswithJustin/TorahExport/internal/emit"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// ManifestFile is the manifest's name in the export root.
const ManifestFile = "manifest.json"

var modeEmitters = map[string][]string{
	config.ModeFull:     {emit.NameRaw, emit.NameStructured, emit.NameBooks, emit.NameComplete, emit.NameParsha, emit.NameSearch},
	config.ModeOptimize: {emit.NameParsha, emit.NameSearch, emit.NameCompact},
	config.ModeAll:      emit.Order,
}

// Emitters resolves the emitters a configuration runs, in canonical order.
// An explicit list wins over the mode.
func Emitters(cfg config.Config) ([]string, error) {
	if len(cfg.Emitters) > 0 {
		return emit.Sorted(cfg.Emitters)
	}
	names, ok := modeEmitters[cfg.Mode]
	if !ok {
		return nil, apperrors.NewValidation("mode", fmt.Sprintf("unknown mode %q", cfg.Mode))
	}
	return emit.Sorted(names)
}

// Exporter runs one export.
type Exporter struct {
	Config config.Config
	// Clock supplies every timestamp written. Nil means time.Now.
	Clock func() time.Time
	// Out receives status lines. Nil discards them.
	Out     io.Writer
	Version string
}

// Result is what a successful run produced.
type Result struct {
	Manifest     stats.Manifest
	Stats        stats.Stats
	ManifestPath string
}

// Run performs the export. The first failing step aborts the run; files
// already written stay on disk.
func (x *Exporter) Run(ctx context.Context) (*Result, error) {
	cfg := x.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	names, err := Emitters(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := artifact.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	start := x.now()
	src, err := source.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	digest, _, err := cas.SumFile(cfg.Database)
	if err != nil {
		return nil, apperrors.NewIO("read", cfg.Database, err)
	}
	ctx = logging.WithExportID(ctx, stats.ExportID(digest.SHA256))
	logging.Step(ctx, "export", "start", "database", cfg.Database, "output", cfg.OutputDir, "emitters", names)

	if cfg.Clean {
		if err := Clean(cfg.OutputDir); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, apperrors.NewIO("mkdir", cfg.OutputDir, err)
	}

	w := artifact.NewWriter(cfg.OutputDir, codec)
	env := &emit.Env{
		Source:          src,
		Writer:          w,
		Clock:           x.Clock,
		SourceName:      filepath.Base(cfg.Database),
		ExporterVersion: x.Version,
		PreviewRunes:    cfg.PreviewRunes,
		Jobs:            cfg.Jobs,
		Out:             x.Out,
	}

	x.statusf("Exporting %s to %s\n", cfg.Database, cfg.OutputDir)
	st := stats.New()
	for i, name := range names {
		e, err := emit.Lookup(name)
		if err != nil {
			return nil, err
		}
		x.statusf("[%d/%d] %s\n", i+1, len(names), name)
		logging.Step(ctx, name, "start")
		if st, err = e.Emit(ctx, env, st); err != nil {
			logging.StepError(ctx, name, err)
			return nil, apperrors.Wrapf(err, "%s", name)
		}
		logging.Step(ctx, name, "done", "files", st.TotalFiles())
	}

	m := stats.Finalize(st, stats.RunInfo{
		Created:           x.now(),
		ExporterVersion:   x.Version,
		SourceDatabase:    filepath.Base(cfg.Database),
		SourceSHA256:      digest.SHA256,
		ExportDirectory:   cfg.OutputDir,
		Mode:              cfg.Mode,
		Emitters:          names,
		Codec:             codec.Name(),
		AliasTableVersion: compact.V1.Version,
		TupleVersion:      emit.TupleVersion,
	})
	if _, err := w.WritePretty(ManifestFile, "", m); err != nil {
		return nil, apperrors.Wrap(err, "manifest")
	}

	manifestPath := filepath.Join(cfg.OutputDir, ManifestFile)
	logging.Step(ctx, "export", "done",
		"files", m.ExportInfo.TotalFiles,
		"size_bytes", m.ExportInfo.TotalSizeBytes,
		"elapsed", x.now().Sub(start).String())
	x.statusf("Export complete: %d files, %s\n", m.ExportInfo.TotalFiles, m.ExportInfo.TotalSizeHuman)
	x.statusf("Manifest: %s\n", manifestPath)

	return &Result{Manifest: m, Stats: st, ManifestPath: manifestPath}, nil
}

// Clean removes what the previous export recorded in dir's manifest: each
// listed artifact, the manifest itself, and category directories left
// empty. Files the manifest does not list are kept, and a dir without a
// manifest is left alone.
func Clean(dir string) error {
	manifestPath := filepath.Join(dir, ManifestFile)
	var m stats.Manifest
	if err := artifact.DecodeInto(manifestPath, &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperrors.Wrap(err, "read previous manifest")
	}

	for _, a := range m.Artifacts {
		if !inCategory(a.Path) {
			return apperrors.NewValidation("manifest", fmt.Sprintf("artifact %q is outside the export directories", a.Path))
		}
		path, err := validation.SanitizePath(dir, a.Path)
		if err != nil {
			return apperrors.NewValidation("manifest", fmt.Sprintf("artifact %q: %v", a.Path, err))
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewIO("clean", path, err)
		}
	}
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewIO("clean", manifestPath, err)
	}

	for _, c := range stats.Categories {
		if err := pruneEmpty(filepath.Join(dir, c)); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmpty removes root and the directories below it that hold no files,
// deepest first.
func pruneEmpty(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewIO("clean", root, err)
	}
	for _, d := range slices.Backward(dirs) {
		entries, err := os.ReadDir(d)
		if err != nil {
			return apperrors.NewIO("clean", d, err)
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err != nil {
			return apperrors.NewIO("clean", d, err)
		}
	}
	return nil
}

func (x *Exporter) now() time.Time {
	if x.Clock == nil {
		return time.Now()
	}
	return x.Clock()
}

func (x *Exporter) statusf(format string, args ...any) {
	if x.Out != nil {
		fmt.Fprintf(x.Out, format, args...)
	}
}

// FormatSize renders a byte count the way status lines do.
func FormatSize(n int64) string {
	return humanize.Bytes(uint64(n))
}
