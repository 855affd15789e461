package artifact

import (
	"bytes"
	"encoding/json"
	"os"
	"path"
	"path/filepath"

	"github.com/FocuswithJustin/TorahExport/core/cas"
	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/stats"
	"github.com/FocuswithJustin/TorahExport/internal/validation"
)

// MarshalPretty encodes doc with two-space indentation, without HTML
// escaping, and with a trailing newline.
func MarshalPretty(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCompact encodes doc without whitespace or HTML escaping.
func MarshalCompact(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Writer writes artifacts below a root directory.
type Writer struct {
	root  string
	codec Codec
}

// NewWriter returns a writer rooted at root that compresses with codec.
func NewWriter(root string, codec Codec) *Writer {
	return &Writer{root: root, codec: codec}
}

// Root returns the export root.
func (w *Writer) Root() string {
	return w.root
}

// Codec returns the compression codec.
func (w *Writer) Codec() Codec {
	return w.codec
}

// CompressedPath returns the artifact path for a compressed document.
func (w *Writer) CompressedPath(base string) string {
	return base + w.codec.Suffix()
}

// WritePretty writes doc as pretty JSON to rel.
func (w *Writer) WritePretty(rel, category string, doc any) (stats.Artifact, error) {
	data, err := MarshalPretty(doc)
	if err != nil {
		return stats.Artifact{}, apperrors.Wrapf(err, "encode %s", rel)
	}
	return w.write(rel, category, "json", data)
}

// WriteCompressed writes doc as minified JSON compressed with the writer's
// codec. The codec suffix is appended to base.
func (w *Writer) WriteCompressed(base, category string, doc any) (stats.Artifact, error) {
	rel := w.CompressedPath(base)
	data, err := MarshalCompact(doc)
	if err != nil {
		return stats.Artifact{}, apperrors.Wrapf(err, "encode %s", rel)
	}
	packed, err := w.codec.Encode(data)
	if err != nil {
		return stats.Artifact{}, apperrors.Wrapf(err, "compress %s", rel)
	}
	return w.write(rel, category, "json+"+w.codec.Name(), packed)
}

// write stores data at rel through a temporary file and rename, so a
// reader never sees a partial artifact.
func (w *Writer) write(rel, category, encoding string, data []byte) (stats.Artifact, error) {
	clean, err := validation.SanitizePath(w.root, rel)
	if err != nil {
		return stats.Artifact{}, apperrors.NewIO("write", rel, err)
	}
	full := filepath.Join(w.root, clean)
	dir := filepath.Dir(full)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return stats.Artifact{}, apperrors.NewIO("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return stats.Artifact{}, apperrors.NewIO("create", full, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return stats.Artifact{}, apperrors.NewIO("write", full, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return stats.Artifact{}, apperrors.NewIO("write", full, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return stats.Artifact{}, apperrors.NewIO("chmod", full, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return stats.Artifact{}, apperrors.NewIO("rename", full, err)
	}

	sum := cas.Sum(data)
	return stats.Artifact{
		Path:      path.Clean(filepath.ToSlash(clean)),
		Category:  category,
		Encoding:  encoding,
		SizeBytes: int64(len(data)),
		SHA256:    sum.SHA256,
		BLAKE3:    sum.BLAKE3,
	}, nil
}

// Decode reads an artifact and undoes its compression, picking the codec
// from the file suffix. Plain JSON is returned as is.
func Decode(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, apperrors.NewIO("read", filePath, err)
	}
	return DecodeBytes(filePath, data)
}

// DecodeBytes is Decode for content already in memory; name selects the
// codec.
func DecodeBytes(name string, data []byte) ([]byte, error) {
	codec, ok := CodecForPath(name)
	if !ok {
		return data, nil
	}
	out, err := codec.Decode(data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "decode %s", name)
	}
	return out, nil
}

// DecodeInto decodes the artifact at filePath into v.
func DecodeInto(filePath string, v any) error {
	data, err := Decode(filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrapf(err, "parse %s", filePath)
	}
	return nil
}
