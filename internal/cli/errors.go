// Package cli provides CLI output formatting and display functions.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/RobokopU24/babel-filter/internal/config"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
)

// PrintParseErrors prints job file parse errors.
func PrintParseErrors(w io.Writer, errs []config.ParseError, verbose bool) {
	fmt.Fprintln(w, "✗ Parse errors:")
	for _, err := range errs {
		printSingleParseError(w, err, verbose)
	}
}

// printSingleParseError prints a single parse error with location information.
func printSingleParseError(w io.Writer, err config.ParseError, verbose bool) {
	location := formatErrorLocation(err.Path, err.Line, err.Column)

	if location != "" {
		fmt.Fprintf(w, "  %s: %s\n", location, err.Message)
	} else {
		fmt.Fprintf(w, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(w, "    Type: %s\n", err.Type)
	}
}

// formatErrorLocation formats the error location string (path:line:column).
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}

	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints job file schema violations.
func PrintValidationErrors(w io.Writer, errs []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(w, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if verbose {
			fmt.Fprintf(w, "  %s:\n", path)
			fmt.Fprintf(w, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(w, "    Type: %s\n", err.Type)
			}
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", path, truncate(err.Message, 80))
	}
	if !quiet && !verbose {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Hint: Use --verbose for detailed error information")
	}
}

// PrintJobFileError prints the parse or validation errors of a job file.
func PrintJobFileError(w io.Writer, err *config.JobFileError, verbose, quiet bool) {
	if err.IsParseError() {
		PrintParseErrors(w, err.Result.ParseErrors, verbose)
		return
	}
	PrintValidationErrors(w, err.Result.ValidationErrors, verbose, quiet)
}

// PrintError prints err with its classification. Job file errors are
// printed in detail.
func PrintError(w io.Writer, err error, verbose, quiet bool) {
	if err == nil {
		return
	}

	var jobErr *config.JobFileError
	if errors.As(err, &jobErr) {
		PrintJobFileError(w, jobErr, verbose, quiet)
		return
	}

	cl := errhandling.ClassifyError(err)
	switch cl.Category {
	case errhandling.CategoryConfiguration:
		fmt.Fprintln(w, "✗ Configuration error:")
	case errhandling.CategoryIO:
		fmt.Fprintln(w, "✗ I/O error:")
	case errhandling.CategoryCanceled:
		fmt.Fprintln(w, "✗ Canceled:")
	default:
		fmt.Fprintln(w, "✗ Error:")
	}
	fmt.Fprintf(w, "  %s\n", err.Error())
	if verbose && cl.Path != "" {
		fmt.Fprintf(w, "    Path: %s\n", cl.Path)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
