// Package main provides the CLI entry point for babel-filter.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RobokopU24/babel-filter/internal/cli"
	"github.com/RobokopU24/babel-filter/internal/config"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/internal/modules/filter"
	"github.com/RobokopU24/babel-filter/internal/modules/input"
	"github.com/RobokopU24/babel-filter/internal/modules/output"
	"github.com/RobokopU24/babel-filter/internal/runtime"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// envFile is loaded from the working directory when present.
const envFile = ".env"

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries the process exit code of a failed command. The error
// has already been reported to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// globalOptions holds the persistent flags.
type globalOptions struct {
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string
}

// execute runs the CLI with args and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger.SetOutput(stderr)
	defer logger.CloseLogFile()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Usage errors from cobra.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitValidationError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "babel-filter",
		Short: "babel-filter - Restrict Babel compendia to a node list",
		Long: `babel-filter copies the lines of Babel compendium files whose identifier
appears in a filter file of nodes, and writes the nodes that no Babel file
mentioned to a residual file.

Examples:
  # Filter a compendia directory with a KGX nodes file
  babel-filter run compendia/ nodes.jsonl out/

  # Skip publications and write plain text output
  babel-filter run -e biolink:Publication -c plain compendia/ nodes.jsonl out/

  # Validate a job file
  babel-filter validate job.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return configureLogging(opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-error output")
	pf.StringVar(&opts.logFormat, "log-format", "json", "Log format: json or human")
	pf.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(newRunCmd(opts, stdout, stderr))
	root.AddCommand(newValidateCmd(opts, stdout, stderr))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func configureLogging(opts *globalOptions, stderr io.Writer) error {
	format, err := logger.ParseFormat(opts.logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "✗ %v\n", err)
		return &exitError{code: ExitValidationError, err: err}
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	} else if opts.quiet {
		level = slog.LevelError
	}

	if opts.logFile != "" {
		if err := logger.SetLogFile(opts.logFile, level, format); err != nil {
			fmt.Fprintf(stderr, "✗ %v\n", err)
			return &exitError{code: ExitRuntimeError, err: err}
		}
		return nil
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

func newRunCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var jobFile string

	cmd := &cobra.Command{
		Use:   "run <babel_directory> <filter_file> <output_directory>",
		Short: "Filter a directory of Babel files",
		Long: `Filter every regular file of the Babel directory, keeping the lines whose
identifier appears in the filter file. Each identifier is kept at most once
across all files. Filter entries that were never matched are written to
NonBabelNodes.txt.gz in the output directory.

The three paths may instead come from a job file (--config) or from
BABEL_FILTER_* environment variables. Flags override the environment, which
overrides the job file.

Exit codes:
  0 - Run completed
  1 - Configuration or validation errors
  2 - Job file parse errors
  3 - Runtime errors`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("accepts 0 or 3 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, opts, jobFile, args, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&jobFile, "config", "", "Job file (JSON, YAML or TOML)")
	f.StringArrayP("exclude-category", "e", nil, "Skip filter entries with this category (repeatable)")
	f.String("babel-identifier", filter.DefaultDataIdentifierKey, "Identifier key of Babel lines")
	f.String("filter-file-identifier", filter.DefaultFilterIdentifierKey, "Identifier key of filter file lines")
	f.String("filter-file-category-key", filter.DefaultFilterCategoryKey, "Category key of filter file lines")
	f.String("filter-file-name-key", filter.DefaultFilterNameKey, "Name key of filter file lines")
	f.StringP("output-format", "c", "match-input", "Output format: match-input, plain, gzip, zstd or lz4")
	f.Int("read-buf-capacity", input.DefaultBufferSize, "Read buffer size in bytes")
	f.Int("write-buf-capacity", output.DefaultBufferSize, "Write buffer size in bytes")
	f.String("residual-file-name", filter.DefaultResidualFileName, "Name of the residual file in the output directory")
	f.String("report-file", "", "Write a JSON run report to this file")
	return cmd
}

func runFilter(cmd *cobra.Command, opts *globalOptions, jobFile string, args []string, stdout, stderr io.Writer) error {
	overrides := map[string]any{}
	if len(args) == 3 {
		overrides["babel_directory"] = args[0]
		overrides["filter_file"] = args[1]
		overrides["output_directory"] = args[2]
	}

	cfg, err := config.Load(config.LoadOptions{
		JobFile:   jobFile,
		EnvFile:   envFile,
		Flags:     cmd.Flags(),
		Overrides: overrides,
	})
	if err != nil {
		cli.PrintError(stderr, err, opts.verbose, opts.quiet)
		return &exitError{code: exitCodeFor(err), err: err}
	}

	result, err := runtime.NewExecutor(cfg).Execute(cmd.Context())
	if err != nil && errhandling.IsConfiguration(err) {
		cli.PrintError(stderr, err, opts.verbose, opts.quiet)
		return &exitError{code: ExitValidationError, err: err}
	}

	cli.PrintExecutionResult(stdout, stderr, result, err, cli.OutputOptions{
		Verbose: opts.verbose,
		Quiet:   opts.quiet,
	})
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	return nil
}

// exitCodeFor maps a settings error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case errhandling.IsParse(err):
		return ExitParseError
	case errhandling.IsConfiguration(err):
		return ExitValidationError
	default:
		return ExitRuntimeError
	}
}

func newValidateCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a job file",
		Long: `Validate a job file against the schema.

JSON, YAML and TOML are supported. The format is detected from the file
extension (.json, .yaml, .yml, .toml) or from the content.

Exit codes:
  0 - Job file is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			if !opts.quiet {
				fmt.Fprintf(stdout, "Validating job file: %s\n", path)
			}

			result := config.ParseConfig(path)
			if !result.IsValid() {
				jobErr := &config.JobFileError{Result: result}
				cli.PrintJobFileError(stderr, jobErr, opts.verbose, opts.quiet)
				return &exitError{code: exitCodeFor(jobErr), err: jobErr}
			}

			if !opts.quiet {
				fmt.Fprintf(stdout, "✓ Job file is valid (format: %s)\n", result.Format)
				if opts.verbose {
					cli.PrintConfigSummary(stdout, result.Data)
				}
			}
			return nil
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "Version: %s\n", version)
			fmt.Fprintf(stdout, "Commit: %s\n", commit)
			fmt.Fprintf(stdout, "Build Date: %s\n", buildDate)
		},
	}
}
