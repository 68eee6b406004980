// Package errhandling provides error types and classification for filter runs.
//
// Three kinds of failure exist: configuration errors (bad paths or options,
// detected before any file is touched), parse errors (a single unparseable
// line, never propagated past the line loop) and I/O errors (open, create,
// read, write or close failures, always fatal for the run).
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents missing or invalid paths and options.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryParse represents a job file or line that could not be parsed.
	CategoryParse ErrorCategory = "parse"

	// CategoryIO represents file open/create/read/write/close failures.
	CategoryIO ErrorCategory = "io"

	// CategoryCanceled represents a run stopped through its context.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Op is the operation that failed ("open", "create", "read", "write", "close", ...).
	Op string

	// Path is the file the operation was applied to, if any.
	Path string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := e.Message
	if msg == "" && e.OriginalErr != nil {
		msg = e.OriginalErr.Error()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s error: %s %s: %s", e.Category, e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s error: %s: %s", e.Category, e.Op, msg)
	default:
		return fmt.Sprintf("%s error: %s", e.Category, msg)
	}
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryConfiguration,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewParseError creates a parse error for path.
func NewParseError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryParse,
		Op:          "parse",
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIOError creates an I/O error for op applied to path.
func NewIOError(op, path string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Op:          op,
		Path:        path,
		OriginalErr: originalErr,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Op:          pathErr.Op,
			Path:        pathErr.Path,
			Message:     pathErr.Err.Error(),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryConfiguration
}

// IsParse reports whether err is a parse error.
func IsParse(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryParse
}

// IsIO reports whether err is an I/O error.
func IsIO(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryIO
}
