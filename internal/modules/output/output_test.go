package output

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobokopU24/babel-filter/internal/errhandling"
	"github.com/RobokopU24/babel-filter/internal/modules/input"
)

func TestLineSink_RoundTrip(t *testing.T) {
	lines := []string{`{"curie":"A:1","names":["x"]}`, `{"curie":"A:2"}`, ""}

	for _, name := range []string{"out.txt", "out.txt.gz", "out.txt.zst", "out.txt.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			sink, err := Create(path, 8)
			require.NoError(t, err)
			for _, l := range lines {
				require.NoError(t, sink.WriteLine([]byte(l)))
			}
			assert.Equal(t, int64(len(lines)), sink.Lines())
			require.NoError(t, sink.Close())

			src, err := input.Open(path, 0)
			require.NoError(t, err)
			defer func() { _ = src.Close() }()

			var got []string
			for {
				line, err := src.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, string(line))
			}
			assert.Equal(t, lines, got)
		})
	}
}

func TestLineSink_PlainBytesVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	raw := []byte(`{ "curie" : "A:1",  "extra": {"k": [1, 2]} }`)

	sink, err := Create(path, 0)
	require.NoError(t, err)
	require.NoError(t, sink.WriteLine(raw))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append(raw, '\n'), data)
}

func TestCreate_MissingDirectory(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "nope", "out.txt"), 0)
	require.Error(t, err)
	assert.True(t, errhandling.IsIO(err))
}

func TestLineSink_WriteAfterClose(t *testing.T) {
	sink, err := Create(filepath.Join(t.TempDir(), "out.txt"), 0)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	err = sink.WriteLine([]byte("x"))
	assert.True(t, errhandling.IsIO(err))
}
