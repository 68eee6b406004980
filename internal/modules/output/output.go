// Package output provides the line sink used to write JSONL files.
// A sink transparently compresses according to the suffix of the file it
// creates (see package codec).
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/RobokopU24/babel-filter/internal/codec"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
)

// DefaultBufferSize is the write buffer capacity used when none is configured.
const DefaultBufferSize = 32000

// LineSink appends lines to a newly created file.
type LineSink struct {
	path   string
	file   *os.File
	enc    io.WriteCloser
	writer *bufio.Writer
	lines  int64
	closed bool
}

// Create creates (or truncates) path for writing. Non-positive bufSize falls
// back to DefaultBufferSize. Failures are returned as classified I/O errors.
func Create(path string, bufSize int) (*LineSink, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	f, err := os.Create(path) // #nosec G304 -- output path is derived from the configured output directory
	if err != nil {
		return nil, errhandling.NewIOError("create", path, err)
	}

	c := codec.ForPath(path)
	enc, err := c.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, errhandling.NewIOError("create", path, fmt.Errorf("%s stream: %w", c.Name(), err))
	}

	return &LineSink{
		path:   path,
		file:   f,
		enc:    enc,
		writer: bufio.NewWriterSize(enc, bufSize),
	}, nil
}

// Path returns the file path the sink writes.
func (s *LineSink) Path() string {
	return s.path
}

// Lines returns the number of lines written so far.
func (s *LineSink) Lines() int64 {
	return s.lines
}

// WriteLine writes line followed by "\n". The bytes are not modified.
func (s *LineSink) WriteLine(line []byte) error {
	if s.closed {
		return errhandling.NewIOError("write", s.path, os.ErrClosed)
	}
	if _, err := s.writer.Write(line); err != nil {
		return errhandling.NewIOError("write", s.path, err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return errhandling.NewIOError("write", s.path, err)
	}
	s.lines++
	return nil
}

// Close flushes buffered lines, finishes the compressed stream and closes the
// file. All three steps run; the first error is returned. A failing Close means
// the file is incomplete. Calling Close again is a no-op.
func (s *LineSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	if err := s.writer.Flush(); err != nil {
		first = errhandling.NewIOError("write", s.path, err)
	}
	if err := s.enc.Close(); err != nil && first == nil {
		first = errhandling.NewIOError("close", s.path, err)
	}
	if err := s.file.Close(); err != nil && first == nil {
		first = errhandling.NewIOError("close", s.path, err)
	}
	return first
}
