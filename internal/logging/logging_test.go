package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// captureLogOutput redirects the global logger to a buffer for the duration of f.
func captureLogOutput(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	old := defaultLogger
	InitLoggerTo(&buf, level, format)
	defer func() { defaultLogger = old }()

	f()
	return buf.String()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestLevelFiltering(t *testing.T) {
	out := captureLogOutput(LevelWarn, FormatText, func() {
		Info("hidden")
		Warn("shown")
	})
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestArtifactJSON(t *testing.T) {
	ctx := WithExportID(context.Background(), "run-1")
	out := captureLogOutput(LevelDebug, FormatJSON, func() {
		Artifact(ctx, "chunks/book_1.gz", "chunks", 1234, "codec", "gzip")
	})

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, out)
	}
	if entry["msg"] != "artifact_written" {
		t.Errorf("msg = %v, want artifact_written", entry["msg"])
	}
	if entry["path"] != "chunks/book_1.gz" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["export_id"] != "run-1" {
		t.Errorf("export_id = %v, want run-1", entry["export_id"])
	}
	if entry["size_bytes"] != float64(1234) {
		t.Errorf("size_bytes = %v, want 1234", entry["size_bytes"])
	}
}

func TestStepErrorAndOptionalTable(t *testing.T) {
	ctx := context.Background()
	out := captureLogOutput(LevelDebug, FormatText, func() {
		OptionalTableMissing(ctx, "Parshiot")
		StepError(ctx, "raw", errors.New("disk full"))
		Step(ctx, "structured", "start")
	})
	for _, want := range []string{"optional_table_missing", "table=Parshiot", "export_step_failed", "error=\"disk full\"", "step=structured"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGetExportID(t *testing.T) {
	if got := GetExportID(context.Background()); got != "" {
		t.Errorf("GetExportID(empty) = %q", got)
	}
	ctx := WithExportID(context.Background(), "abc")
	if got := GetExportID(ctx); got != "abc" {
		t.Errorf("GetExportID() = %q, want abc", got)
	}
}
