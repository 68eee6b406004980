// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across a run.
//
// Helpers cover run start/end, stage start/end and per-file results. All
// helpers use snake_case field names.
//
// The package supports two output formats:
//   - JSON (default): Machine-readable structured logging
//   - Human: Console output with coloured level markers
//
// Logs go to stderr so that stdout stays free for the run summary.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a console format with colours and level markers
	FormatHuman
)

var (
	mu            sync.Mutex
	currentLevel  = slog.LevelInfo
	currentFormat = FormatJSON
	console       io.Writer = os.Stderr
)

func init() {
	rebuild()
}

// rebuild replaces Logger from the current level, format and writer.
// Callers hold mu, except init.
func rebuild() {
	var h slog.Handler = newConsoleHandler(console, currentLevel, currentFormat)
	if logFile != nil {
		h = &dualHandler{
			console: h,
			file:    slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: currentLevel}),
		}
	}
	Logger = slog.New(h)
}

func newConsoleHandler(w io.Writer, level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// SetLevel configures the logging level, keeping the current format.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	rebuild()
}

// SetFormat sets the log output format, keeping the current level.
func SetFormat(format OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	currentFormat = format
	rebuild()
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	currentFormat = format
	rebuild()
}

// SetOutput redirects console logging to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = w
	rebuild()
}

// ParseFormat maps "json" or "human" to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text", "console":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (expected json or human)", s)
	}
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// =============================================================================
// Execution Context Helpers
// =============================================================================

// ExecutionContext identifies what a log line is about.
type ExecutionContext struct {
	// RunID is the unique identifier of the run (required)
	RunID string
	// Stage is the current stage (index, filter, residual)
	Stage string
	// File is the file being processed, if any
	File string
}

// ExecutionError contains structured error information for logging.
type ExecutionError struct {
	Code    string
	Message string
}

// ErrorContext contains structured context for error logging.
type ErrorContext struct {
	RunID string
	Stage string
	File  string

	ErrorCode     string
	ErrorCategory string
	Err           error

	Duration time.Duration
	Extra    map[string]interface{}
}

// WithExecution returns a logger with execution context attached.
func WithExecution(ctx ExecutionContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogExecutionStart logs the start of a run.
func LogExecutionStart(ctx ExecutionContext, args ...any) {
	Logger.Info("execution started", append(buildContextAttrs(ctx), args...)...)
}

// LogExecutionEnd logs the completion of a run with its final status.
func LogExecutionEnd(ctx ExecutionContext, status string, linesKept int64, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int64("lines_kept", linesKept),
		slog.Duration("duration", duration),
	)
	if status == "error" {
		Logger.Error("execution failed", attrs...)
		return
	}
	Logger.Info("execution completed", attrs...)
}

// LogStageStart logs the start of a stage.
func LogStageStart(ctx ExecutionContext) {
	Logger.Info("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the completion of a stage. count is the number of
// records the stage produced. If err is non-nil, logs as an error.
func LogStageEnd(ctx ExecutionContext, count int64, duration time.Duration, err *ExecutionError) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int64("record_count", count),
		slog.Duration("duration", duration),
	)

	if err != nil {
		attrs = append(attrs,
			slog.String("error_code", err.Code),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// LogFileResult logs the outcome of filtering one data file.
func LogFileResult(ctx ExecutionContext, output string, lines, kept int64, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("output", output),
		slog.Int64("lines", lines),
		slog.Int64("kept", kept),
		slog.Duration("duration", duration),
	)
	Logger.Info("file completed", attrs...)
}

// LogError logs an error with full execution context, including the
// unwrapped error chain.
func LogError(message string, errCtx ErrorContext) {
	attrs := buildContextAttrs(ExecutionContext{
		RunID: errCtx.RunID,
		Stage: errCtx.Stage,
		File:  errCtx.File,
	})

	if errCtx.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", errCtx.ErrorCode))
	}
	if errCtx.ErrorCategory != "" {
		attrs = append(attrs, slog.String("error_category", errCtx.ErrorCategory))
	}
	if errCtx.Err != nil {
		attrs = append(attrs,
			slog.String("error", errCtx.Err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)),
		)

		chain := []string{errCtx.Err.Error()}
		for cur := errors.Unwrap(errCtx.Err); cur != nil; cur = errors.Unwrap(cur) {
			chain = append(chain, cur.Error())
		}
		if len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds slog attributes from an ExecutionContext.
// Only non-empty fields are included, except run_id.
func buildContextAttrs(ctx ExecutionContext) []any {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.File != "" {
		attrs = append(attrs, slog.String("file", ctx.File))
	}
	return attrs
}

// =============================================================================
// Human-Readable Log Format Support
// =============================================================================

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	// Level is the minimum log level to output
	Level slog.Level
	// UseColors enables colour output (auto-detected by the setters)
	UseColors bool
}

// HumanHandler is a slog handler that outputs human-readable log messages.
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	styles levelStyles
	attrs  []slog.Attr
	groups []string
}

type levelStyles struct {
	err, warn, ok, info, debug, key lipgloss.Style
}

func newLevelStyles(w io.Writer) levelStyles {
	r := lipgloss.NewRenderer(w)
	return levelStyles{
		err:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		info:  r.NewStyle().Foreground(lipgloss.Color("6")),
		debug: r.NewStyle().Faint(true),
		key:   r.NewStyle().Faint(true),
	}
}

// NewHumanHandler creates a new human-readable log handler.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{
		opts:   *opts,
		writer: w,
		styles: newLevelStyles(w),
	}
}

// Enabled returns true if the handler is enabled for the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// maxInlineAttrs caps the attributes shown on one line.
const maxInlineAttrs = 6

// Handle outputs a log record in human-readable format.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(h.levelPrefix(r.Level, r.Message))
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	attrs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.formatAttr(a))
		return true
	})
	for _, a := range h.attrs {
		attrs = append(attrs, h.formatAttr(a))
	}

	if len(attrs) > 0 {
		shown := attrs
		if len(shown) > maxInlineAttrs {
			shown = shown[:maxInlineAttrs]
		}
		sb.WriteString(" ")
		sb.WriteString(strings.Join(shown, " "))
		if len(attrs) > maxInlineAttrs {
			fmt.Fprintf(&sb, " (+%d more)", len(attrs)-maxInlineAttrs)
		}
	}

	sb.WriteString("\n")
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// levelPrefix returns the marker for level; "completed" messages get ✓.
func (h *HumanHandler) levelPrefix(level slog.Level, message string) string {
	var prefix string
	var style lipgloss.Style
	switch {
	case level >= slog.LevelError:
		prefix, style = "✗", h.styles.err
	case level >= slog.LevelWarn:
		prefix, style = "⚠", h.styles.warn
	case level >= slog.LevelInfo && strings.Contains(strings.ToLower(message), "completed"):
		prefix, style = "✓", h.styles.ok
	case level >= slog.LevelInfo:
		prefix, style = "ℹ", h.styles.info
	default:
		prefix, style = "·", h.styles.debug
	}

	if h.opts.UseColors {
		return style.Render(prefix)
	}
	return prefix
}

// formatAttr formats a single attribute for display.
func (h *HumanHandler) formatAttr(a slog.Attr) string {
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	if h.opts.UseColors {
		key = h.styles.key.Render(key)
	}

	switch v := a.Value.Any().(type) {
	case time.Duration:
		return fmt.Sprintf("%s=%s", key, FormatDuration(v))
	case float64:
		return fmt.Sprintf("%s=%.2f", key, v)
	default:
		return fmt.Sprintf("%s=%v", key, v)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// =============================================================================
// Log File Output Support
// =============================================================================

// logFile holds the currently open log file (if any)
var logFile *os.File

// maxLogFileSize is the size at which an existing log file is rotated (10MB).
const maxLogFileSize = 10 * 1024 * 1024

// rotateLogFile renames path with a timestamp suffix if it exceeds maxLogFileSize.
func rotateLogFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking log file size: %w", err)
	}

	if info.Size() >= maxLogFileSize {
		rotated := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102-150405"))
		if err := os.Rename(path, rotated); err != nil {
			return fmt.Errorf("rotating log file: %w", err)
		}
	}
	return nil
}

// SetLogFile makes logging write to both the console and path. File logs are
// always JSON. A file over 10MB is rotated first.
func SetLogFile(path string, level slog.Level, consoleFormat OutputFormat) error {
	CloseLogFile()

	if err := rotateLogFile(path); err != nil {
		Warn("log rotation failed", slog.String("error", err.Error()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- log path comes from the command line
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	mu.Lock()
	logFile = f
	currentLevel = level
	currentFormat = consoleFormat
	rebuild()
	mu.Unlock()

	Debug("log file opened",
		slog.String("path", path),
		slog.String("console_format", formatName(consoleFormat)),
	)
	return nil
}

// CloseLogFile closes the current log file if one is open and returns to
// console-only logging.
func CloseLogFile() {
	mu.Lock()
	f := logFile
	logFile = nil
	if f != nil {
		rebuild()
	}
	mu.Unlock()

	if f == nil {
		return
	}
	if err := f.Sync(); err != nil {
		Warn("failed to sync log file", slog.String("error", err.Error()))
	}
	if err := f.Close(); err != nil {
		Warn("failed to close log file", slog.String("error", err.Error()))
	}
}

func formatName(f OutputFormat) string {
	if f == FormatHuman {
		return "human"
	}
	return "json"
}

// dualHandler is a slog.Handler that writes to both console and file handlers.
type dualHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (d *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.console.Enabled(ctx, level) || d.file.Enabled(ctx, level)
}

func (d *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	if d.console.Enabled(ctx, r.Level) {
		if err := d.console.Handle(ctx, r); err != nil {
			return err
		}
	}
	if d.file.Enabled(ctx, r.Level) {
		if err := d.file.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (d *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		console: d.console.WithAttrs(attrs),
		file:    d.file.WithAttrs(attrs),
	}
}

func (d *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		console: d.console.WithGroup(name),
		file:    d.file.WithGroup(name),
	}
}
