// Package persistence writes run reports so that scheduled or scripted runs
// can be audited after the fact.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/pkg/babel"
)

// Common errors
var (
	// ErrNoReportPath is returned when the store has no path.
	ErrNoReportPath = errors.New("report path is required")

	// ErrNilResult is returned when the result is nil.
	ErrNilResult = errors.New("execution result is nil")
)

// ReportStore persists an ExecutionResult as an indented JSON file.
type ReportStore struct {
	path string
	mu   sync.Mutex
}

// NewReportStore creates a store writing to path.
func NewReportStore(path string) *ReportStore {
	return &ReportStore{path: path}
}

// Path returns the report file path.
func (s *ReportStore) Path() string {
	return s.path
}

// Save writes result atomically: the JSON is written to a temp file in the
// same directory and renamed over the report path. The directory must exist.
func (s *ReportStore) Save(result *babel.ExecutionResult) error {
	if s.path == "" {
		return ErrNoReportPath
	}
	if result == nil {
		return ErrNilResult
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp report file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp report file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		logger.Warn("failed to rename report file",
			"temp_path", tmpPath,
			"final_path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("renaming report file: %w", err)
	}

	logger.Debug("report saved",
		"run_id", result.RunID,
		"path", s.path,
		"status", result.Status,
	)
	return nil
}

// Load reads a report written by Save.
// Returns nil, nil if the report file doesn't exist.
func (s *ReportStore) Load() (*babel.ExecutionResult, error) {
	if s.path == "" {
		return nil, ErrNoReportPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}

	var result babel.ExecutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &result, nil
}
