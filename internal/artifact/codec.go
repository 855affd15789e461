// Package artifact encodes export documents and writes them to disk:
// pretty JSON for human-facing files and minified JSON through a
// compression codec for everything else.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
)

// Codec compresses whole documents. Encode must be deterministic.
type Codec interface {
	Name() string
	Suffix() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Built-in codecs.
var (
	Gzip Codec = gzipCodec{}
	XZ   Codec = xzCodec{}
	Zstd Codec = zstdCodec{}
)

var codecs = []Codec{Gzip, XZ, Zstd}

// CodecByName returns the codec called name ("gzip", "xz" or "zstd").
func CodecByName(name string) (Codec, error) {
	for _, c := range codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: codec %q", apperrors.ErrUnsupported, name)
}

// CodecForPath returns the codec whose suffix path ends with.
func CodecForPath(path string) (Codec, bool) {
	for _, c := range codecs {
		if strings.HasSuffix(path, c.Suffix()) {
			return c, true
		}
	}
	return nil, false
}

type gzipCodec struct{}

func (gzipCodec) Name() string   { return "gzip" }
func (gzipCodec) Suffix() string { return ".gz" }

// Encode leaves the header mtime at zero so output depends only on data.
func (gzipCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	// A zero time.Time is not the Unix epoch; MTIME must be written as 0.
	gw.ModTime = time.Unix(0, 0)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decode(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

type xzCodec struct{}

func (xzCodec) Name() string   { return "xz" }
func (xzCodec) Suffix() string { return ".xz" }

func (xzCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := xw.Write(data); err != nil {
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xzCodec) Decode(data []byte) ([]byte, error) {
	xr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	return io.ReadAll(xr)
}

type zstdCodec struct{}

func (zstdCodec) Name() string   { return "zstd" }
func (zstdCodec) Suffix() string { return ".zst" }

// Encode uses a single-threaded encoder; concurrent block encoding would
// make the output depend on scheduling.
func (zstdCodec) Encode(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decode(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
