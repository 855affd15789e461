package archive

import (
	"fmt"
	"strings"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
)

// Format is a bundle compression format.
type Format string

const (
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
)

// ParseFormat accepts "tar.gz" (or "tgz") and "tar.xz".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "tar.gz", "tgz":
		return FormatTarGz, nil
	case "tar.xz":
		return FormatTarXz, nil
	}
	return "", fmt.Errorf("%w: bundle format %q", apperrors.ErrUnsupported, s)
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// DetectFormat returns the format implied by a file name, or "" when the
// name is not a bundle.
func DetectFormat(path string) Format {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return FormatTarXz
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		return FormatTarGz
	}
	return ""
}

// BundleName strips the bundle extension from a file name.
func BundleName(filename string) string {
	for _, ext := range []string{".tar.xz", ".tar.gz", ".tgz"} {
		if strings.HasSuffix(filename, ext) {
			return strings.TrimSuffix(filename, ext)
		}
	}
	return filename
}
