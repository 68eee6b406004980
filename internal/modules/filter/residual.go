package filter

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/RobokopU24/babel-filter/internal/codec"
	"github.com/RobokopU24/babel-filter/internal/logger"
	"github.com/RobokopU24/babel-filter/internal/modules/output"
)

// DefaultResidualFileName is the residual file written to the output directory.
const DefaultResidualFileName = "NonBabelNodes.txt.gz"

// CategoryPrefix is stripped from categories in residual records.
const CategoryPrefix = "biolink:"

// ResidualOptions configures EmitResidual.
type ResidualOptions struct {
	OutputDir string
	// FileName defaults to DefaultResidualFileName. The residual file is always
	// compressed: a name without a compressed suffix gets ".gz" appended.
	FileName string
	// IdentifierKey is the key the identifier is written under, so residual
	// records look like data records. Defaults to DefaultDataIdentifierKey.
	IdentifierKey   string
	WriteBufferSize int
}

// ResidualStats reports the outcome of EmitResidual.
type ResidualStats struct {
	Path      string        `json:"path"`
	Remaining int           `json:"remaining"`
	Written   int64         `json:"written"`
	Dropped   int64         `json:"dropped"`
	Duration  time.Duration `json:"duration"`
}

// ResidualPath returns the residual file path for opts.
func ResidualPath(opts ResidualOptions) string {
	name := opts.FileName
	if name == "" {
		name = DefaultResidualFileName
	}
	if !codec.IsCompressed(name) {
		name = codec.ApplyPolicy(name, codec.PolicyGzip)
	}
	return filepath.Join(opts.OutputDir, name)
}

// EmitResidual writes one synthesized record for every entry left in index.
// Entries without a display name or without categories are dropped silently.
// Iteration order is unspecified. The index is not modified.
func EmitResidual(ctx context.Context, index *Index, opts ResidualOptions) (stats ResidualStats, err error) {
	start := time.Now()
	if opts.IdentifierKey == "" {
		opts.IdentifierKey = DefaultDataIdentifierKey
	}
	stats = ResidualStats{Path: ResidualPath(opts), Remaining: index.Len()}

	sink, err := output.Create(stats.Path, opts.WriteBufferSize)
	if err != nil {
		return stats, fmt.Errorf("creating residual file: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finishing residual file: %w", cerr)
		}
	}()

	var (
		buf     bytes.Buffer
		loopErr error
		seen    int64
	)
	index.Range(func(rec Record) bool {
		seen++
		if seen%cancelCheckInterval == 0 {
			if loopErr = ctx.Err(); loopErr != nil {
				return false
			}
		}
		if !rec.HasName || !rec.HasCategories {
			stats.Dropped++
			return true
		}

		buf.Reset()
		if loopErr = encodeResidual(&buf, opts.IdentifierKey, rec); loopErr != nil {
			loopErr = fmt.Errorf("encoding residual record %q: %w", rec.Identifier, loopErr)
			return false
		}
		if loopErr = sink.WriteLine(buf.Bytes()); loopErr != nil {
			loopErr = fmt.Errorf("writing residual file: %w", loopErr)
			return false
		}
		stats.Written++
		return true
	})
	if loopErr != nil {
		return stats, loopErr
	}

	stats.Duration = time.Since(start)
	logger.Debug("residual records written",
		"path", stats.Path,
		"remaining", stats.Remaining,
		"written", stats.Written,
		"dropped", stats.Dropped,
	)
	return stats, nil
}

// residualField is one key/value of a residual record, kept in emission order.
type residualField struct {
	key   string
	value any
}

// encodeResidual writes rec as a single JSON object with keys in the order
// identifier, names, types, preferred_name, shortest_name_length.
func encodeResidual(buf *bytes.Buffer, idKey string, rec Record) error {
	types := make([]string, len(rec.Categories))
	for i, c := range rec.Categories {
		types[i] = strings.TrimPrefix(c, CategoryPrefix)
	}

	fields := []residualField{
		{idKey, rec.Identifier},
		{"names", []string{rec.DisplayName}},
		{"types", types},
		// A plain string, as in Babel records.
		{"preferred_name", rec.DisplayName},
		{"shortest_name_length", utf8.RuneCountInString(rec.DisplayName)},
	}

	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.MarshalNoEscape(f.key)
		if err != nil {
			return err
		}
		v, err := json.MarshalNoEscape(f.value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}
