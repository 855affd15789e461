package export

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/FocuswithJustin/TorahExport/core/cas"
	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/archive"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// Problem is one discrepancy between a manifest and the files it describes.
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// Report is the outcome of Verify.
type Report struct {
	Manifest stats.Manifest
	Checked  int
	Problems []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(path, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

type fileDigest struct {
	size   int64
	digest cas.HashResult
	// mismatch is set when the content does not match the type its
	// name claims.
	mismatch string
}

// digestEntry hashes r and sniffs its leading bytes against name.
func digestEntry(name string, r io.Reader) (fileDigest, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return fileDigest{}, err
	}
	var d fileDigest
	if _, err := validation.ValidateFileType(bytes.NewReader(head), name); err != nil {
		d.mismatch = err.Error()
	}
	d.digest, d.size, err = cas.SumReader(br)
	return d, err
}

// Verify checks an export directory or bundle against its manifest: every
// listed artifact must exist with the recorded size and digests, and no
// file in a category directory may be missing from the list. Problems are
// collected in the report; the error is reserved for exports that cannot be
// read at all.
func Verify(ctx context.Context, path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewIO("stat", path, err)
	}

	var manifest []byte
	var files map[string]fileDigest
	if info.IsDir() {
		manifest, files, err = scanDir(ctx, path)
	} else {
		manifest, files, err = scanBundle(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, apperrors.NewNotFound("manifest", ManifestFile)
	}

	r := &Report{}
	if err := json.Unmarshal(manifest, &r.Manifest); err != nil {
		return nil, apperrors.NewValidation("manifest", err.Error())
	}

	listed := make(map[string]bool, len(r.Manifest.Artifacts))
	var total int64
	for _, a := range r.Manifest.Artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.Checked++
		total += a.SizeBytes
		if listed[a.Path] {
			r.addf(a.Path, "listed twice")
			continue
		}
		listed[a.Path] = true

		got, ok := files[a.Path]
		switch {
		case !cas.IsValidHash(a.SHA256):
			r.addf(a.Path, "malformed sha256 %q", a.SHA256)
		case a.BLAKE3 != "" && !cas.IsValidHash(a.BLAKE3):
			r.addf(a.Path, "malformed blake3 %q", a.BLAKE3)
		case !ok:
			r.addf(a.Path, "missing")
		case got.size != a.SizeBytes:
			r.addf(a.Path, "size %d, manifest says %d", got.size, a.SizeBytes)
		case got.mismatch != "":
			r.addf(a.Path, "%s", got.mismatch)
		case got.digest.SHA256 != a.SHA256:
			r.addf(a.Path, "sha256 mismatch")
		case a.BLAKE3 != "" && got.digest.BLAKE3 != a.BLAKE3:
			r.addf(a.Path, "blake3 mismatch")
		}
	}

	unlisted := make([]string, 0)
	for p := range files {
		if !listed[p] {
			unlisted = append(unlisted, p)
		}
	}
	slices.Sort(unlisted)
	for _, p := range unlisted {
		r.addf(p, "not listed in manifest")
	}

	ei := r.Manifest.ExportInfo
	if ei.TotalFiles != len(r.Manifest.Artifacts) {
		r.addf(ManifestFile, "total_files %d, artifacts listed %d", ei.TotalFiles, len(r.Manifest.Artifacts))
	}
	if ei.TotalSizeBytes != total {
		r.addf(ManifestFile, "total_size_bytes %d, artifacts sum to %d", ei.TotalSizeBytes, total)
	}
	return r, nil
}

// inCategory reports whether rel lies inside one of the category
// directories.
func inCategory(rel string) bool {
	dir, _, ok := strings.Cut(rel, "/")
	if !ok {
		return false
	}
	return slices.Contains(stats.Categories, dir)
}

func scanDir(ctx context.Context, root string) ([]byte, map[string]fileDigest, error) {
	manifest, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, apperrors.NewIO("read", ManifestFile, err)
	}

	files := map[string]fileDigest{}
	for _, c := range stats.Categories {
		dir := filepath.Join(root, c)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			digest, err := digestEntry(rel, f)
			if err != nil {
				return err
			}
			files[rel] = digest
			return nil
		})
		if err != nil {
			return nil, nil, apperrors.NewIO("scan", dir, err)
		}
	}
	return manifest, files, nil
}

func scanBundle(ctx context.Context, path string) ([]byte, map[string]fileDigest, error) {
	if archive.DetectFormat(path) == "" {
		return nil, nil, fmt.Errorf("%w: %s is neither a directory nor a bundle", apperrors.ErrUnsupported, path)
	}

	var manifest []byte
	files := map[string]fileDigest{}
	err := archive.IterateFile(path, func(h *tar.Header, r io.Reader) (bool, error) {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		rel := archive.StripBase(h.Name)
		switch {
		case rel == ManifestFile:
			data, err := io.ReadAll(r)
			manifest = data
			return false, err
		case inCategory(rel):
			d, err := digestEntry(rel, r)
			files[rel] = d
			return false, err
		}
		return false, nil
	})
	if err != nil {
		return nil, nil, apperrors.NewIO("read", path, err)
	}
	return manifest, files, nil
}
