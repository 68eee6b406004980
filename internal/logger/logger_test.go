package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RobokopU24/babel-filter/internal/logger"
)

// captureJSON points Logger at a JSON handler writing to the returned buffer.
func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to parse JSON log output %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerInitialization(t *testing.T) {
	if logger.Logger == nil {
		t.Fatal("Logger should be initialized on package load")
	}
}

func TestSetOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)
	defer logger.SetLevelAndFormat(slog.LevelInfo, logger.FormatJSON)

	logger.SetLevelAndFormat(slog.LevelWarn, logger.FormatJSON)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected warn message in JSON output: %s", out)
	}

	// SetLevel keeps the current format.
	buf.Reset()
	logger.SetFormat(logger.FormatHuman)
	logger.SetLevel(slog.LevelDebug)
	logger.Debug("debug line")
	if !strings.Contains(buf.String(), "· debug line") {
		t.Errorf("expected human debug output, got %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.OutputFormat
		wantErr bool
	}{
		{"", logger.FormatJSON, false},
		{"json", logger.FormatJSON, false},
		{"Human", logger.FormatHuman, false},
		{"xml", logger.FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := logger.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogExecutionStartAndEnd(t *testing.T) {
	buf := captureJSON(t)
	ctx := logger.ExecutionContext{RunID: "run-1"}

	logger.LogExecutionStart(ctx, "filter_file", "nodes.jsonl")
	logger.LogExecutionEnd(ctx, "success", 42, 3*time.Second)
	logger.LogExecutionEnd(ctx, "error", 0, time.Second)

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0]["msg"] != "execution started" || entries[0]["run_id"] != "run-1" || entries[0]["filter_file"] != "nodes.jsonl" {
		t.Errorf("unexpected start entry: %v", entries[0])
	}
	if entries[1]["msg"] != "execution completed" || entries[1]["lines_kept"] != float64(42) {
		t.Errorf("unexpected end entry: %v", entries[1])
	}
	if entries[2]["msg"] != "execution failed" || entries[2]["level"] != "ERROR" {
		t.Errorf("unexpected failure entry: %v", entries[2])
	}
}

func TestLogStageEnd(t *testing.T) {
	buf := captureJSON(t)
	ctx := logger.ExecutionContext{RunID: "run-1", Stage: "index"}

	logger.LogStageStart(ctx)
	logger.LogStageEnd(ctx, 10, time.Millisecond, nil)
	logger.LogStageEnd(ctx, 0, time.Millisecond, &logger.ExecutionError{Code: "INDEX_FAILED", Message: "boom"})

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1]["msg"] != "stage completed" || entries[1]["stage"] != "index" || entries[1]["record_count"] != float64(10) {
		t.Errorf("unexpected stage end entry: %v", entries[1])
	}
	if entries[2]["msg"] != "stage failed" || entries[2]["error_code"] != "INDEX_FAILED" {
		t.Errorf("unexpected stage failure entry: %v", entries[2])
	}
}

func TestLogFileResult(t *testing.T) {
	buf := captureJSON(t)
	logger.LogFileResult(logger.ExecutionContext{RunID: "r", Stage: "filter", File: "a.txt.gz"}, "out/a.txt.gz", 100, 7, time.Second)

	entry := decodeLines(t, buf)[0]
	for key, want := range map[string]interface{}{
		"file":   "a.txt.gz",
		"output": "out/a.txt.gz",
		"lines":  float64(100),
		"kept":   float64(7),
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestExecutionContextPartialFields(t *testing.T) {
	buf := captureJSON(t)
	logger.WithExecution(logger.ExecutionContext{RunID: "r"}).Info("x")

	entry := decodeLines(t, buf)[0]
	if _, ok := entry["stage"]; ok {
		t.Error("empty stage should be omitted")
	}
	if _, ok := entry["file"]; ok {
		t.Error("empty file should be omitted")
	}
}

func TestLogError(t *testing.T) {
	buf := captureJSON(t)
	base := errors.New("disk full")
	logger.LogError("write failed", logger.ErrorContext{
		RunID:         "r",
		Stage:         "filter",
		File:          "a.txt",
		ErrorCode:     "FILTER_FAILED",
		ErrorCategory: "io",
		Err:           fmt.Errorf("writing output file: %w", base),
		Extra:         map[string]interface{}{"kept": 3},
	})

	entry := decodeLines(t, buf)[0]
	if entry["level"] != "ERROR" || entry["error_category"] != "io" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if chain, _ := entry["error_chain"].(string); !strings.Contains(chain, "-> disk full") {
		t.Errorf("expected error chain, got %v", entry["error_chain"])
	}
	if entry["kept"] != float64(3) {
		t.Errorf("expected extra field, got %v", entry["kept"])
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})
	l := slog.New(h).With("run_id", "r")

	l.Info("stage completed", "duration", 1500*time.Millisecond, "rate", 1.2345)
	l.Warn("report not written")
	l.Error("execution failed")
	l.Debug("not shown")

	out := buf.String()
	for _, want := range []string{
		"✓ stage completed",
		"duration=1.50s",
		"rate=1.23",
		"run_id=r",
		"⚠ report not written",
		"✗ execution failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "not shown") {
		t.Error("debug record should be filtered")
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("colours must be off for non-terminal writers")
	}
}

func TestHumanHandlerTruncatesAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(logger.NewHumanHandler(&buf, nil))
	l.Info("many", "a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6, "g", 7, "h", 8)

	if !strings.Contains(buf.String(), "(+2 more)") {
		t.Errorf("expected truncation marker, got %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.50s"},
		{90 * time.Second, "1.5m"},
	}
	for _, tt := range tests {
		if got := logger.FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSetLogFile(t *testing.T) {
	var console bytes.Buffer
	logger.SetOutput(&console)
	defer logger.SetOutput(os.Stderr)
	defer logger.SetLevelAndFormat(slog.LevelInfo, logger.FormatJSON)

	path := filepath.Join(t.TempDir(), "run.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatHuman); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	logger.Info("test log message", "key", "value")
	logger.CloseLogFile()
	logger.Info("after close")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"test log message"`) || !strings.Contains(string(content), `"key":"value"`) {
		t.Errorf("expected JSON entry in log file, got %s", content)
	}
	if strings.Contains(string(content), "after close") {
		t.Error("log file should not receive entries after CloseLogFile")
	}
	if !strings.Contains(console.String(), "ℹ test log message") {
		t.Errorf("expected human console entry, got %q", console.String())
	}
}

func TestCloseLogFileWithoutOpen(t *testing.T) {
	logger.CloseLogFile()
	logger.CloseLogFile()
}
