package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/RobokopU24/babel-filter/internal/codec"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/internal/modules/input"
	"github.com/RobokopU24/babel-filter/internal/modules/output"
	"github.com/RobokopU24/babel-filter/internal/pathutil"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// IdentifierKey is the data-file key joined against the index.
	IdentifierKey string
	// OutputDir receives one output file per input file.
	OutputDir string
	// Format decides the framing of output files.
	Format          codec.Policy
	ReadBufferSize  int
	WriteBufferSize int
	// OnFile, if set, is called by ProcessAll after each completed file.
	OnFile func(FileStats)
}

// FileStats reports the outcome of filtering one data file.
type FileStats struct {
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Lines    int64         `json:"lines"`
	Kept     int64         `json:"kept"`
	Skipped  int64         `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// FileError reports the data file ProcessAll failed on, with the counts
// reached before the failure.
type FileError struct {
	Stats FileStats
	Err   error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("filtering %s: %v", e.Stats.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// Engine filters data files against an Index. Every matched identifier is
// removed from the index, so across all files processed by the same Engine an
// entry matches at most one line: the first one seen.
type Engine struct {
	index *Index
	cfg   EngineConfig
}

// NewEngine creates an engine that drains index.
func NewEngine(index *Index, cfg EngineConfig) *Engine {
	if cfg.IdentifierKey == "" {
		cfg.IdentifierKey = DefaultDataIdentifierKey
	}
	if cfg.Format == "" {
		cfg.Format = codec.PolicyMatchInput
	}
	return &Engine{index: index, cfg: cfg}
}

// OutputPath returns where the filtered copy of inputPath is written.
func (e *Engine) OutputPath(inputPath string) string {
	name := codec.ApplyPolicy(filepath.Base(inputPath), e.cfg.Format)
	return filepath.Join(e.cfg.OutputDir, name)
}

// ProcessAll filters paths in order and stops at the first error. The stats of
// files completed before the failure are returned with it; a failure inside a
// file is returned as a *FileError.
func (e *Engine) ProcessAll(ctx context.Context, paths []string) ([]FileStats, error) {
	results := make([]FileStats, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		stats, err := e.ProcessFile(ctx, path)
		if err != nil {
			return results, &FileError{Stats: stats, Err: err}
		}
		results = append(results, stats)
		if e.cfg.OnFile != nil {
			e.cfg.OnFile(stats)
		}
	}
	return results, nil
}

// ProcessFile copies every line of inputPath whose identifier is still in the
// index to the output file, byte for byte and in input order, and removes the
// identifier from the index. Lines that do not parse or lack the identifier
// are dropped. Any I/O failure is returned and leaves the output incomplete.
func (e *Engine) ProcessFile(ctx context.Context, inputPath string) (stats FileStats, err error) {
	start := time.Now()
	stats = FileStats{Input: inputPath, Output: e.OutputPath(inputPath)}

	src, err := input.Open(inputPath, e.cfg.ReadBufferSize)
	if err != nil {
		return stats, fmt.Errorf("opening data file: %w", err)
	}
	defer func() { _ = src.Close() }()

	if pathutil.SameFile(inputPath, stats.Output) {
		return stats, errhandling.NewConfigurationError(
			fmt.Sprintf("output file %q would overwrite its input", stats.Output), nil)
	}

	sink, err := output.Create(stats.Output, e.cfg.WriteBufferSize)
	if err != nil {
		return stats, fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finishing output file: %w", cerr)
		}
	}()

	for {
		line, rerr := src.Next()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return stats, fmt.Errorf("reading data file: %w", rerr)
		}
		stats.Lines++

		if stats.Lines%cancelCheckInterval == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return stats, cerr
			}
		}

		id, ok := Identifier(line, e.cfg.IdentifierKey)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, ok := e.index.Take(id); !ok {
			continue
		}
		if werr := sink.WriteLine(line); werr != nil {
			return stats, fmt.Errorf("writing output file: %w", werr)
		}
		stats.Kept++
	}

	stats.Duration = time.Since(start)
	logger.Debug("data file filtered",
		"input", stats.Input,
		"output", stats.Output,
		"lines", stats.Lines,
		"kept", stats.Kept,
		"skipped", stats.Skipped,
		"remaining", e.index.Len(),
	)
	return stats, nil
}
