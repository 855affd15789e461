package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// exportTree lays out a small export directory.
func exportTree(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "torah_json_export")
	files := map[string]string{
		"manifest.json":         `{"export_info":{}}`,
		"tables/tbl_Sefer.json": `{"table_name":"tbl_Sefer"}`,
		"data/search.gz":        "not really gzip",
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create source dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return src
}

func entries(t *testing.T, path string) []string {
	t.Helper()
	var names []string
	err := IterateFile(path, func(h *tar.Header, _ io.Reader) (bool, error) {
		names = append(names, h.Name)
		return false, nil
	})
	if err != nil {
		t.Fatalf("IterateFile() error = %v", err)
	}
	return names
}

func TestCreate(t *testing.T) {
	want := []string{
		"export/data/",
		"export/data/search.gz",
		"export/manifest.json",
		"export/tables/",
		"export/tables/tbl_Sefer.json",
	}

	for _, format := range []Format{FormatTarGz, FormatTarXz} {
		t.Run(string(format), func(t *testing.T) {
			src := exportTree(t)
			dst := filepath.Join(t.TempDir(), "nested", "export"+format.Ext())

			if err := Create(src, dst, "export", format, fixedTime); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if diff := cmp.Diff(want, entries(t, dst)); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateHeaders(t *testing.T) {
	src := exportTree(t)
	dst := filepath.Join(t.TempDir(), "export.tar.gz")
	if err := Create(src, dst, "export", FormatTarGz, fixedTime); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := IterateFile(dst, func(h *tar.Header, _ io.Reader) (bool, error) {
		if !h.ModTime.Equal(fixedTime) {
			t.Errorf("%s: ModTime = %v, want %v", h.Name, h.ModTime, fixedTime)
		}
		if h.Uid != 0 || h.Gid != 0 || h.Uname != "" || h.Gname != "" {
			t.Errorf("%s: owner information recorded", h.Name)
		}
		wantMode := int64(0644)
		if h.Typeflag == tar.TypeDir {
			wantMode = 0755
		}
		if h.Mode != wantMode {
			t.Errorf("%s: Mode = %o, want %o", h.Name, h.Mode, wantMode)
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("IterateFile() error = %v", err)
	}
}

func TestCreateDeterministic(t *testing.T) {
	src := exportTree(t)
	dir := t.TempDir()

	for _, format := range []Format{FormatTarGz, FormatTarXz} {
		a := filepath.Join(dir, "a"+format.Ext())
		b := filepath.Join(dir, "b"+format.Ext())
		if err := Create(src, a, "export", format, fixedTime); err != nil {
			t.Fatalf("Create(a) error = %v", err)
		}
		// Touch a file so its on-disk mtime differs between runs.
		later := fixedTime.Add(time.Hour)
		if err := os.Chtimes(filepath.Join(src, "manifest.json"), later, later); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
		if err := Create(src, b, "export", format, fixedTime); err != nil {
			t.Fatalf("Create(b) error = %v", err)
		}

		da, _ := os.ReadFile(a)
		db, _ := os.ReadFile(b)
		if !bytes.Equal(da, db) {
			t.Errorf("%s: archives differ between runs", format)
		}
	}
}

func TestCreateGzipHeaderHasNoTimestamp(t *testing.T) {
	src := exportTree(t)
	dst := filepath.Join(t.TempDir(), "export.tar.gz")
	if err := Create(src, dst, "export", FormatTarGz, fixedTime); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 10 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatalf("not a gzip stream: % x", data[:min(len(data), 10)])
	}
	if !bytes.Equal(data[4:8], []byte{0, 0, 0, 0}) {
		t.Errorf("MTIME = %x, want zero", data[4:8])
	}
}

func TestCreateRejectsDestinationInsideSource(t *testing.T) {
	src := exportTree(t)
	dst := filepath.Join(src, "export.tar.gz")

	if err := Create(src, dst, "export", FormatTarGz, fixedTime); err == nil {
		t.Fatal("expected error for archive inside source directory")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("archive file should not be created")
	}
}

func TestCreateUnsupportedFormat(t *testing.T) {
	src := exportTree(t)
	if err := Create(src, filepath.Join(t.TempDir(), "x.zip"), "x", Format("zip"), fixedTime); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCreateMissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "export.tar.xz")
	if err := Create(filepath.Join(t.TempDir(), "missing"), dst, "export", FormatTarXz, fixedTime); err == nil {
		t.Fatal("expected error for missing source directory")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"tar.gz", FormatTarGz, false},
		{"TGZ", FormatTarGz, false},
		{"tar.xz", FormatTarXz, false},
		{"zip", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, apperrors.ErrUnsupported) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupported", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBundleName(t *testing.T) {
	tests := map[string]string{
		"export.tar.gz":       "export",
		"export.tar.xz":       "export",
		"export.tgz":          "export",
		"torah_export.json":   "torah_export.json",
		"dir/snapshot.tar.xz": "dir/snapshot",
	}
	for in, want := range tests {
		if got := BundleName(in); got != want {
			t.Errorf("BundleName(%q) = %q, want %q", in, got, want)
		}
	}
}
