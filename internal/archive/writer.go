package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Create packs srcDir into dstPath. Entries are named baseDir/<relative
// path>, written in lexical order with modTime and no owner information,
// so the same tree always produces the same archive.
func Create(srcDir, dstPath, baseDir string, format Format, modTime time.Time) error {
	if format != FormatTarGz && format != FormatTarXz {
		return fmt.Errorf("unsupported archive format: %q", format)
	}
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return err
	}
	absDst, err := filepath.Abs(dstPath)
	if err != nil {
		return err
	}
	if info, err := os.Stat(srcDir); err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", srcDir)
	}
	if absDst == absSrc || strings.HasPrefix(absDst, absSrc+string(filepath.Separator)) {
		return fmt.Errorf("archive %s would be inside %s", dstPath, srcDir)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	switch format {
	case FormatTarGz:
		var gw *gzip.Writer
		gw, err = gzip.NewWriterLevel(outFile, gzip.BestCompression)
		if err == nil {
			gw.ModTime = time.Unix(0, 0)
			compressor = gw
		}
	case FormatTarXz:
		compressor, err = xz.NewWriter(outFile)
	}
	if err != nil {
		return err
	}

	tw := tar.NewWriter(compressor)
	if err := writeTree(tw, srcDir, baseDir, modTime); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return outFile.Close()
}

func writeTree(tw *tar.Writer, srcDir, baseDir string, modTime time.Time) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		// Skip root directory
		if relPath == "." {
			return nil
		}

		header := &tar.Header{
			Name:    baseDir + "/" + filepath.ToSlash(relPath),
			ModTime: modTime,
		}
		switch {
		case info.IsDir():
			header.Typeflag = tar.TypeDir
			header.Name += "/"
			header.Mode = 0755
		case info.Mode().IsRegular():
			header.Typeflag = tar.TypeReg
			header.Mode = 0644
			header.Size = info.Size()
		default:
			return nil
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}
