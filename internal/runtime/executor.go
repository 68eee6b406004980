// Package runtime runs a filter job: it builds the membership index, filters
// every Babel file and writes the residual file.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RobokopU24/babel-filter/internal/config"
	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/internal/modules/filter"
	"github.com/RobokopU24/babel-filter/internal/pathutil"
	"github.com/RobokopU24/babel-filter/internal/persistence"
	"github.com/RobokopU24/babel-filter/pkg/babel"
)

// Executor runs one filter job. It is not safe for concurrent use; the index
// is owned by the goroutine calling Execute.
type Executor struct {
	cfg   *config.Config
	newID func() string
}

// NewExecutor creates an executor for cfg.
func NewExecutor(cfg *config.Config) *Executor {
	return &Executor{
		cfg:   cfg,
		newID: uuid.NewString,
	}
}

// Execute runs the job with the stages index, filter and residual in that
// order. The result is always non-nil; on failure it has status "error" and
// carries an ExecutionError, and the returned error is the cause.
//
// Configuration and path problems are reported before any file is touched.
// When a report file is configured the result is saved to it whatever the
// outcome; failing to save it only logs a warning.
func (e *Executor) Execute(ctx context.Context) (*babel.ExecutionResult, error) {
	startedAt := time.Now()
	result := &babel.ExecutionResult{
		RunID:     e.newID(),
		Status:    babel.StatusError,
		StartedAt: startedAt,
	}
	if e.cfg == nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeConfigInvalid, StageSetup, ErrNilConfig)
		return result, ErrNilConfig
	}

	cfg := e.cfg
	result.BabelDirectory = cfg.BabelDirectory
	result.FilterFile = cfg.FilterFile
	result.OutputDirectory = cfg.OutputDirectory

	execCtx := logger.ExecutionContext{RunID: result.RunID}
	logger.LogExecutionStart(execCtx,
		slog.String("babel_directory", cfg.BabelDirectory),
		slog.String("filter_file", cfg.FilterFile),
		slog.String("output_directory", cfg.OutputDirectory),
		slog.Any("exclude_category", cfg.ExcludeCategory),
	)

	err := e.run(ctx, cfg, result)
	result.CompletedAt = time.Now()
	if err == nil {
		result.Status = babel.StatusSuccess
	}
	logger.LogExecutionEnd(execCtx, result.Status, result.LinesKept, result.Duration())

	e.saveReport(result)
	return result, err
}

func (e *Executor) run(ctx context.Context, cfg *config.Config, result *babel.ExecutionResult) error {
	fail := func(code, stage string, err error) error {
		result.Error = buildExecutionError(code, stage, err)
		logger.LogError("run failed", logger.ErrorContext{
			RunID:         result.RunID,
			Stage:         stage,
			File:          result.Error.Path,
			ErrorCode:     result.Error.Code,
			ErrorCategory: result.Error.Category,
			Err:           err,
		})
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fail(ErrCodeConfigInvalid, StageSetup, err)
	}
	if err := cfg.CheckPaths(); err != nil {
		return fail(ErrCodeConfigInvalid, StageSetup, err)
	}
	files, err := pathutil.ListRegularFiles(cfg.BabelDirectory)
	if err != nil {
		return fail(ErrCodeListFailed, StageSetup, err)
	}

	index, err := e.buildIndex(ctx, cfg, result)
	if err != nil {
		return fail(ErrCodeIndexFailed, StageIndex, err)
	}
	if failed, err := e.filterFiles(ctx, cfg, index, files, result); err != nil {
		err = fail(ErrCodeFilterFailed, StageFilter, err)
		if result.Error.Path == "" {
			result.Error.Path = failed
		}
		return err
	}
	if err := e.emitResidual(ctx, cfg, index, result); err != nil {
		return fail(ErrCodeResidualFailed, StageResidual, err)
	}
	return nil
}

func (e *Executor) buildIndex(ctx context.Context, cfg *config.Config, result *babel.ExecutionResult) (*filter.Index, error) {
	stageCtx := logger.ExecutionContext{RunID: result.RunID, Stage: StageIndex, File: cfg.FilterFile}
	logger.LogStageStart(stageCtx)

	index, stats, err := filter.BuildIndex(ctx, cfg.FilterFile, filter.BuildOptions{
		IdentifierKey:  cfg.FilterIdentifierKey,
		CategoryKey:    cfg.FilterCategoryKey,
		NameKey:        cfg.FilterNameKey,
		Exclude:        filter.NewExclusionSet(cfg.ExcludeCategory),
		ReadBufferSize: cfg.ReadBufferSize,
	})
	if err != nil {
		logger.LogStageEnd(stageCtx, stats.Lines, stats.Duration, &logger.ExecutionError{
			Code:    ErrCodeIndexFailed,
			Message: err.Error(),
		})
		return nil, fmt.Errorf("building index from %s: %w", cfg.FilterFile, err)
	}

	result.Index = &babel.IndexResult{
		Lines:      stats.Lines,
		Indexed:    stats.Indexed,
		Excluded:   stats.Excluded,
		Skipped:    stats.Skipped,
		Duplicates: stats.Duplicates,
		Duration:   stats.Duration,
	}
	logger.LogStageEnd(stageCtx, int64(stats.Indexed), stats.Duration, nil)
	return index, nil
}

func (e *Executor) filterFiles(ctx context.Context, cfg *config.Config, index *filter.Index, files []string, result *babel.ExecutionResult) (string, error) {
	stageCtx := logger.ExecutionContext{RunID: result.RunID, Stage: StageFilter}
	logger.LogStageStart(stageCtx)
	start := time.Now()

	engine := filter.NewEngine(index, filter.EngineConfig{
		IdentifierKey:   cfg.DataIdentifierKey,
		OutputDir:       cfg.OutputDirectory,
		Format:          cfg.Policy(),
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		OnFile: func(stats filter.FileStats) {
			fileCtx := stageCtx
			fileCtx.File = stats.Input
			logger.LogFileResult(fileCtx, stats.Output, stats.Lines, stats.Kept, stats.Duration)
		},
	})

	logger.WithExecution(stageCtx).Debug("filtering data files",
		slog.Int("files", len(files)),
		slog.String("output_format", string(cfg.Policy())),
	)
	stats, err := engine.ProcessAll(ctx, files)
	for _, s := range stats {
		result.LinesRead += s.Lines
		result.LinesKept += s.Kept
		result.Files = append(result.Files, babel.FileResult{
			Input:    s.Input,
			Output:   s.Output,
			Lines:    s.Lines,
			Kept:     s.Kept,
			Skipped:  s.Skipped,
			Duration: s.Duration,
		})
	}
	if err == nil {
		logger.LogStageEnd(stageCtx, result.LinesKept, time.Since(start), nil)
		return "", nil
	}

	code := ErrCodeFilterFailed
	var failed string
	var fileErr *filter.FileError
	if errors.As(err, &fileErr) {
		failed = fileErr.Stats.Input
		result.LinesRead += fileErr.Stats.Lines
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeCanceled
	}
	logger.LogStageEnd(stageCtx, result.LinesKept, time.Since(start), &logger.ExecutionError{
		Code:    code,
		Message: err.Error(),
	})
	return failed, err
}

func (e *Executor) emitResidual(ctx context.Context, cfg *config.Config, index *filter.Index, result *babel.ExecutionResult) error {
	opts := filter.ResidualOptions{
		OutputDir:       cfg.OutputDirectory,
		FileName:        cfg.ResidualFileName,
		IdentifierKey:   cfg.DataIdentifierKey,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	stageCtx := logger.ExecutionContext{RunID: result.RunID, Stage: StageResidual, File: filter.ResidualPath(opts)}
	logger.LogStageStart(stageCtx)

	stats, err := filter.EmitResidual(ctx, index, opts)
	if err != nil {
		logger.LogStageEnd(stageCtx, stats.Written, stats.Duration, &logger.ExecutionError{
			Code:    ErrCodeResidualFailed,
			Message: err.Error(),
		})
		return fmt.Errorf("writing residual file: %w", err)
	}

	result.Residual = &babel.ResidualResult{
		Path:      stats.Path,
		Remaining: stats.Remaining,
		Written:   stats.Written,
		Dropped:   stats.Dropped,
		Duration:  stats.Duration,
	}
	logger.LogStageEnd(stageCtx, stats.Written, stats.Duration, nil)
	return nil
}

func (e *Executor) saveReport(result *babel.ExecutionResult) {
	if e.cfg == nil || e.cfg.ReportFile == "" {
		return
	}
	store := persistence.NewReportStore(e.cfg.ReportFile)
	if err := store.Save(result); err != nil {
		logger.Warn("failed to write run report",
			slog.String("run_id", result.RunID),
			slog.String("path", store.Path()),
			slog.String("error", err.Error()),
		)
	}
}
