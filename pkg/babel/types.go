// Package babel provides public result types for babel-filter runs.
// This package is intended to be importable by tools that consume run
// reports written with --report-file.
package babel

import "time"

// Execution status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExecutionResult represents the result of one filter run.
type ExecutionResult struct {
	// RunID uniquely identifies the run in logs and reports
	RunID string `json:"runId"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// BabelDirectory, FilterFile and OutputDirectory echo the run inputs
	BabelDirectory  string `json:"babelDirectory"`
	FilterFile      string `json:"filterFile"`
	OutputDirectory string `json:"outputDirectory"`

	// Index describes the membership index built from the filter file
	Index *IndexResult `json:"index,omitempty"`

	// Files holds one entry per data file, in processing order
	Files []FileResult `json:"files,omitempty"`

	// Residual describes the residual file, if it was written
	Residual *ResidualResult `json:"residual,omitempty"`

	// LinesRead is the total number of data-file lines read
	LinesRead int64 `json:"linesRead"`

	// LinesKept is the total number of data-file lines written
	LinesKept int64 `json:"linesKept"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (r *ExecutionResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// IndexResult describes the index stage.
type IndexResult struct {
	Lines      int64         `json:"lines"`
	Indexed    int           `json:"indexed"`
	Excluded   int64         `json:"excluded"`
	Skipped    int64         `json:"skipped"`
	Duplicates int64         `json:"duplicates"`
	Duration   time.Duration `json:"durationNs"`
}

// FileResult describes the filtering of one data file.
type FileResult struct {
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Lines    int64         `json:"lines"`
	Kept     int64         `json:"kept"`
	Skipped  int64         `json:"skipped"`
	Duration time.Duration `json:"durationNs"`
}

// ResidualResult describes the residual stage.
type ResidualResult struct {
	Path      string        `json:"path"`
	Remaining int           `json:"remaining"`
	Written   int64         `json:"written"`
	Dropped   int64         `json:"dropped"`
	Duration  time.Duration `json:"durationNs"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Stage is the stage where the error occurred ("index", "filter", "residual")
	Stage string `json:"stage,omitempty"`

	// Category is the error classification ("configuration", "io", ...)
	Category string `json:"category,omitempty"`

	// Path is the file involved, if any
	Path string `json:"path,omitempty"`
}
