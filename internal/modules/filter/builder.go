package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/internal/modules/input"
)

// Default keys read from filter and data files.
const (
	DefaultFilterIdentifierKey = "id"
	DefaultFilterCategoryKey   = "category"
	DefaultFilterNameKey       = "name"
	DefaultDataIdentifierKey   = "curie"
)

// cancelCheckInterval is how many lines are processed between context checks.
const cancelCheckInterval = 4096

// BuildOptions configures BuildIndex. Empty keys fall back to the defaults.
type BuildOptions struct {
	IdentifierKey string
	CategoryKey   string
	NameKey       string
	// Exclude keeps entries with any of these categories out of the index.
	// An empty set excludes nothing.
	Exclude ExclusionSet
	// ReadBufferSize is passed to the line source.
	ReadBufferSize int
}

func (o BuildOptions) keys() Keys {
	k := Keys{
		Identifier: o.IdentifierKey,
		Category:   o.CategoryKey,
		Name:       o.NameKey,
	}
	if k.Identifier == "" {
		k.Identifier = DefaultFilterIdentifierKey
	}
	if k.Category == "" {
		k.Category = DefaultFilterCategoryKey
	}
	if k.Name == "" {
		k.Name = DefaultFilterNameKey
	}
	return k
}

// BuildStats reports what happened to the lines of the filter file.
type BuildStats struct {
	Lines      int64         `json:"lines"`
	Indexed    int           `json:"indexed"`
	Excluded   int64         `json:"excluded"`
	Skipped    int64         `json:"skipped"`
	Duplicates int64         `json:"duplicates"`
	Duration   time.Duration `json:"duration"`
}

// BuildIndex reads the filter file at path and returns the membership index.
//
// Lines that are not JSON objects or lack a string identifier are skipped.
// When an exclusion set is configured, entries whose categories intersect it
// are dropped; a missing or non-array category value counts as no categories.
// A later line with the same identifier replaces the earlier entry, and an
// excluded later line leaves the earlier entry in place.
//
// Failing to open or read the file is fatal.
func BuildIndex(ctx context.Context, path string, opts BuildOptions) (*Index, BuildStats, error) {
	start := time.Now()
	keys := opts.keys()
	exclude := opts.Exclude.Configured()

	src, err := input.Open(path, opts.ReadBufferSize)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("opening filter file: %w", err)
	}
	defer func() { _ = src.Close() }()

	idx := NewIndex()
	var stats BuildStats

	for {
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("reading filter file: %w", err)
		}
		stats.Lines++

		if stats.Lines%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		rec, ok := ParseRecord(line, keys)
		if !ok {
			stats.Skipped++
			continue
		}
		if exclude && opts.Exclude.Matches(rec.Categories) {
			stats.Excluded++
			continue
		}
		if idx.Put(rec) {
			stats.Duplicates++
		}
	}

	stats.Indexed = idx.Len()
	stats.Duration = time.Since(start)

	logger.Debug("membership index built",
		"path", path,
		"lines", stats.Lines,
		"indexed", stats.Indexed,
		"excluded", stats.Excluded,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
	)

	return idx, stats, nil
}
