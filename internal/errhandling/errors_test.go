// Package errhandling provides error types and classification for filter runs.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestErrorCategory tests error category constants and their string values.
func TestErrorCategory(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryConfiguration, "configuration"},
		{CategoryParse, "parse"},
		{CategoryIO, "io"},
		{CategoryCanceled, "canceled"},
		{CategoryUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.category) != tt.expected {
				t.Errorf("ErrorCategory = %v, want %v", tt.category, tt.expected)
			}
		})
	}
}

// TestClassifiedError tests the ClassifiedError type.
func TestClassifiedError(t *testing.T) {
	t.Run("Error message formatting", func(t *testing.T) {
		err := NewIOError("open", "/data/nodes.txt", errors.New("permission denied"))

		errorStr := err.Error()
		if !strings.Contains(errorStr, "io") || !strings.Contains(errorStr, "open /data/nodes.txt") {
			t.Errorf("Error() = %v, want category, op and path", errorStr)
		}
		if !strings.Contains(errorStr, "permission denied") {
			t.Errorf("Error() = %v, want original message", errorStr)
		}
	})

	t.Run("Error message without op", func(t *testing.T) {
		err := NewConfigurationError("output directory does not exist", nil)
		if got := err.Error(); got != "configuration error: output directory does not exist" {
			t.Errorf("Error() = %q", got)
		}
	})

	t.Run("Unwrap returns original error", func(t *testing.T) {
		original := errors.New("original error")
		err := NewParseError("job.yaml", "bad yaml", original)

		if err.Unwrap() != original {
			t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), original)
		}
		if !errors.Is(err, original) {
			t.Error("errors.Is should match original error")
		}
	})
}

// TestClassifyError tests classification of arbitrary errors.
func TestClassifyError(t *testing.T) {
	_, statErr := os.Stat(filepath.Join(t.TempDir(), "missing.jsonl"))

	tests := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
	}{
		{"nil error", nil, CategoryUnknown},
		{"already classified", NewConfigurationError("bad", nil), CategoryConfiguration},
		{"wrapped classified", fmt.Errorf("building index: %w", NewIOError("read", "f", errors.New("x"))), CategoryIO},
		{"path error", statErr, CategoryIO},
		{"context canceled", context.Canceled, CategoryCanceled},
		{"wrapped deadline", fmt.Errorf("filtering: %w", context.DeadlineExceeded), CategoryCanceled},
		{"plain error", errors.New("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Category != tt.wantCategory {
				t.Errorf("ClassifyError() category = %v, want %v", got.Category, tt.wantCategory)
			}
		})
	}
}

func TestClassifyError_PathErrorDetails(t *testing.T) {
	err := &fs.PathError{Op: "open", Path: "/tmp/x.gz", Err: fs.ErrNotExist}

	got := ClassifyError(fmt.Errorf("opening data file: %w", err))
	if got.Op != "open" || got.Path != "/tmp/x.gz" {
		t.Errorf("ClassifyError() op/path = %q/%q", got.Op, got.Path)
	}
	if !errors.Is(got, fs.ErrNotExist) {
		t.Error("classified error should unwrap to fs.ErrNotExist")
	}
}

func TestCategoryHelpers(t *testing.T) {
	if !IsConfiguration(NewConfigurationError("x", nil)) {
		t.Error("IsConfiguration should be true for configuration errors")
	}
	if IsConfiguration(nil) {
		t.Error("IsConfiguration(nil) should be false")
	}
	if !IsIO(fmt.Errorf("wrap: %w", NewIOError("write", "out", errors.New("disk full")))) {
		t.Error("IsIO should see through wrapping")
	}
	if GetErrorCategory(nil) != CategoryUnknown {
		t.Error("GetErrorCategory(nil) should be unknown")
	}
	if !IsParse(fmt.Errorf("loading: %w", NewParseError("job.json", "unexpected token", nil))) {
		t.Error("IsParse should see through wrapping")
	}
	if IsParse(NewConfigurationError("x", nil)) {
		t.Error("IsParse should be false for configuration errors")
	}
}
