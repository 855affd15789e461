// Package emit turns the source and the assembled tree into the export
// documents. Each emitter is independent: it reads through the Env, writes
// its artifacts, and returns the stats it was given plus what it wrote.
package emit

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/artifact"
	"github.com/FocuswithJustin/TorahExport/internal/hierarchy"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
	"github.com/FocuswithJustin/TorahExport/internal/source"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

// Emitter names.
const (
	NameRaw        = "raw"
	NameStructured = "structured"
	NameBooks      = "books"
	NameComplete   = "complete"
	NameParsha     = "parsha"
	NameSearch     = "search"
	NameCompact    = "compact"
)

// Order is the canonical run order.
var Order = []string{NameRaw, NameStructured, NameBooks, NameComplete, NameParsha, NameSearch, NameCompact}

// TupleVersion versions the field order of every positional tuple.
const TupleVersion = "1"

// Emitter writes one family of artifacts.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error)
}

type emitterFunc struct {
	name string
	fn   func(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error)
}

func (e emitterFunc) Name() string { return e.name }

func (e emitterFunc) Emit(ctx context.Context, env *Env, st stats.Stats) (stats.Stats, error) {
	return e.fn(ctx, env, st)
}

var registry = map[string]Emitter{
	NameRaw:        emitterFunc{NameRaw, emitRaw},
	NameStructured: emitterFunc{NameStructured, emitStructured},
	NameBooks:      emitterFunc{NameBooks, emitBooks},
	NameComplete:   emitterFunc{NameComplete, emitComplete},
	NameParsha:     emitterFunc{NameParsha, emitParsha},
	NameSearch:     emitterFunc{NameSearch, emitSearch},
	NameCompact:    emitterFunc{NameCompact, emitCompact},
}

// Known reports whether name is an emitter.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Lookup returns the emitter called name.
func Lookup(name string) (Emitter, error) {
	e, ok := registry[name]
	if !ok {
		return nil, apperrors.NewValidation("emit", fmt.Sprintf("unknown emitter %q", name))
	}
	return e, nil
}

// Sorted returns names de-duplicated and in canonical order.
func Sorted(names []string) ([]string, error) {
	var out []string
	for _, name := range Order {
		if slices.Contains(names, name) {
			out = append(out, name)
		}
	}
	for _, name := range names {
		if !Known(name) {
			return nil, apperrors.NewValidation("emit", fmt.Sprintf("unknown emitter %q", name))
		}
	}
	return out, nil
}

// Env is what emitters share during a run.
type Env struct {
	Source source.Accessor
	Writer *artifact.Writer
	Clock  func() time.Time

	// SourceName is the database name reported inside documents.
	SourceName      string
	ExporterVersion string
	// PreviewRunes bounds verse previews in search tuples; 0 keeps the
	// full text.
	PreviewRunes int
	// Jobs is the number of books assembled at once.
	Jobs int
	// Out receives progress lines. Nil discards them.
	Out io.Writer

	once  sync.Once
	books []*hierarchy.Book
	err   error
}

// Books returns the assembled tree, assembling it on first use.
func (e *Env) Books(ctx context.Context) ([]*hierarchy.Book, error) {
	e.once.Do(func() {
		logging.Step(ctx, "assemble", "start", "jobs", e.Jobs)
		e.books, e.err = hierarchy.AssembleAll(ctx, e.Source, e.Jobs)
		if e.err == nil {
			t := hierarchy.Sum(e.books)
			logging.Step(ctx, "assemble", "done", "books", t.Books, "verses", t.Verses)
			e.statusf("  assembled %d books, %s verses, %s questions\n",
				t.Books, humanize.Comma(int64(t.Verses)), humanize.Comma(int64(t.Questions)))
		}
	})
	return e.books, e.err
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

func (e *Env) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e *Env) statusf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// record logs a written artifact, prints its status line, and folds it
// into st.
func (e *Env) record(ctx context.Context, st stats.Stats, art stats.Artifact, records map[string]int) stats.Stats {
	art.Records = records
	logging.Artifact(ctx, art.Path, art.Category, art.SizeBytes)
	e.statusf("  %-48s %10s\n", art.Path, humanize.Bytes(uint64(art.SizeBytes)))
	return st.WithArtifact(art)
}
