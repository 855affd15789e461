package export

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/archive"
	"github.com/FocuswithJustin/TorahExport/internal/artifact"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
)

// Bundle packs the export in dir into one archive. Entries live under a
// directory named after the bundle file and carry the manifest's creation
// time, so a bundle of an unchanged export is byte for byte the same. An
// empty dst places the bundle next to dir. Returns the bundle path.
func Bundle(dir, dst string, format archive.Format) (string, error) {
	dir = filepath.Clean(dir)

	var m stats.Manifest
	if err := artifact.DecodeInto(filepath.Join(dir, ManifestFile), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.NewNotFound("manifest", filepath.Join(dir, ManifestFile))
		}
		return "", apperrors.Wrap(err, "read manifest")
	}
	created, err := time.Parse(time.RFC3339, m.ExportInfo.Created)
	if err != nil {
		return "", apperrors.NewValidation("created", err.Error())
	}

	if dst == "" {
		dst = dir + format.Ext()
	}
	base := archive.BundleName(filepath.Base(dst))
	if err := archive.Create(dir, dst, base, format, created); err != nil {
		return "", apperrors.NewIO("bundle", dst, err)
	}
	return dst, nil
}
