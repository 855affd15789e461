// Package validation provides input validation and sanitization for paths
// and filenames handled by the exporter: the source database path, the
// output directory, filenames derived from book names, and artifact paths
// read back from a manifest.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxFilenameLength is the maximum allowed filename length in bytes.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// SanitizePath validates a relative path and ensures it does not escape
// baseDir. Returns the cleaned relative path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(filepath.FromSlash(userPath))

	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return "", ErrPathTraversal
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks that a filename is a single safe path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidatePath checks a user-supplied path for length and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// SanitizeFilename turns arbitrary text (such as a Hebrew book name) into a
// safe filename element. Separators become underscores, control characters
// are dropped, and the result is truncated on a rune boundary.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", ErrInvalidFilename
	}

	filename = strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(filename)

	var cleaned strings.Builder
	for _, r := range filename {
		if r == 0 || unicode.IsControl(r) {
			continue
		}
		if cleaned.Len()+len(string(r)) > MaxFilenameLength {
			break
		}
		cleaned.WriteRune(r)
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType identifies a file by content.
type FileType string

const (
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeZstd    FileType = "zstd"
	FileTypeTar     FileType = "tar"
	FileTypeTarGZ   FileType = "tar.gz"
	FileTypeTarXZ   FileType = "tar.xz"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeJSON    FileType = "json"
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}, 0},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}, 0},
	{FileTypeSQLite, []byte("SQLite format 3\x00"), 0},
	{FileTypeTar, []byte("ustar"), 257},
}

// DetectFileType detects a file type from its leading bytes.
func DetectFileType(buf []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(buf) &&
			bytes.Equal(buf[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
			return sig.fileType
		}
	}
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FileTypeJSON
	}
	return FileTypeUnknown
}

// FileTypeFromName determines the expected file type from a filename suffix.
func FileTypeFromName(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		return FileTypeTarXZ
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FileTypeTarGZ
	}
	switch filepath.Ext(lower) {
	case ".gz":
		return FileTypeGzip
	case ".xz":
		return FileTypeXZ
	case ".zst":
		return FileTypeZstd
	case ".tar":
		return FileTypeTar
	case ".json":
		return FileTypeJSON
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	}
	return FileTypeUnknown
}

// ValidateFileType checks that the content read from reader matches the type
// its filename claims. Compression wrappers (.tar.gz, .tar.xz) are accepted
// on their outer magic.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := DetectFileType(buf)
	expected := FileTypeFromName(filename)

	switch {
	case expected == FileTypeTarGZ && detected == FileTypeGzip:
		return FileTypeTarGZ, nil
	case expected == FileTypeTarXZ && detected == FileTypeXZ:
		return FileTypeTarXZ, nil
	case detected == expected:
		return detected, nil
	case expected == FileTypeUnknown:
		return detected, nil
	}
	return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
}
