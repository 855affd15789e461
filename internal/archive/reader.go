// Package archive packs an export directory into a compressed tarball and
// reads such bundles back.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader creates a new archive reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch DetectFormat(path) {
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case FormatTarGz:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Visitor is called for each archive entry. Return true to stop.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateFile opens an archive and iterates through its entries.
func IterateFile(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// StripBase removes the leading directory of an entry name. Bundles keep
// every file under one top-level directory.
func StripBase(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
