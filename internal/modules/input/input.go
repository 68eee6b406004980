// Package input provides the line source used to stream JSONL files.
// A source transparently decompresses files whose name carries a registered
// compressed suffix (see package codec).
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RobokopU24/babel-filter/internal/codec"
	"github.com/RobokopU24/babel-filter/internal/errhandling"
)

// DefaultBufferSize is the read buffer capacity used when none is configured.
const DefaultBufferSize = 32000

// LineSource yields the lines of one file, one at a time, without terminators.
type LineSource struct {
	path   string
	file   *os.File
	dec    io.ReadCloser
	reader *bufio.Reader
	lines  int64
	closed bool
}

// Open opens path for line-by-line reading. Non-positive bufSize falls back to
// DefaultBufferSize. Failures are returned as classified I/O errors.
func Open(path string, bufSize int) (*LineSource, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	f, err := os.Open(path) // #nosec G304 -- path is a user supplied data or filter file
	if err != nil {
		return nil, errhandling.NewIOError("open", path, err)
	}

	c := codec.ForPath(path)
	dec, err := c.NewReader(bufio.NewReaderSize(f, bufSize))
	switch {
	case errors.Is(err, io.EOF):
		// A zero byte compressed file has no header; treat it as empty.
		dec = io.NopCloser(bytes.NewReader(nil))
	case err != nil:
		_ = f.Close()
		return nil, errhandling.NewIOError("open", path, fmt.Errorf("%s stream: %w", c.Name(), err))
	}

	return &LineSource{
		path:   path,
		file:   f,
		dec:    dec,
		reader: bufio.NewReaderSize(dec, bufSize),
	}, nil
}

// Path returns the file path the source reads.
func (s *LineSource) Path() string {
	return s.path
}

// Lines returns the number of lines returned so far.
func (s *LineSource) Lines() int64 {
	return s.lines
}

// Next returns the next line with its "\n" or "\r\n" terminator removed.
// The returned slice is only valid until the next call. At end of input it
// returns io.EOF; a final line without terminator is still returned first.
func (s *LineSource) Next() ([]byte, error) {
	if s.closed {
		return nil, errhandling.NewIOError("read", s.path, os.ErrClosed)
	}

	line, err := s.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			s.lines++
			return trimEOL(line), nil
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errhandling.NewIOError("read", s.path, err)
	}

	s.lines++
	return trimEOL(line), nil
}

// readLine reads up to and including the next newline. Lines longer than the
// buffer are accumulated instead of failing with bufio.ErrBufferFull.
func (s *LineSource) readLine() ([]byte, error) {
	line, err := s.reader.ReadSlice('\n')
	if !errors.Is(err, bufio.ErrBufferFull) {
		return line, err
	}

	long := append([]byte(nil), line...)
	for errors.Is(err, bufio.ErrBufferFull) {
		line, err = s.reader.ReadSlice('\n')
		long = append(long, line...)
	}
	return long, err
}

// Close releases the decompressor and the underlying file. It is safe to call
// more than once.
func (s *LineSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	decErr := s.dec.Close()
	if err := s.file.Close(); err != nil {
		return errhandling.NewIOError("close", s.path, err)
	}
	if decErr != nil {
		return errhandling.NewIOError("close", s.path, decErr)
	}
	return nil
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
