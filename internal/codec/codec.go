// Package codec maps file name suffixes to compression framings.
//
// Detection is purely name based: a file called "nodes.txt.gz" is assumed to be
// gzip framed and nothing inspects its contents. Readers and writers built here
// are used by the line source and line sink so the filter engine never has to
// know whether a file is compressed.
package codec

import (
	"io"
	"path/filepath"
)

// Codec describes one compression framing.
type Codec interface {
	// Name is the identifier used in configuration ("gzip", "zstd", ...).
	Name() string
	// Suffix is the file name suffix including the dot, empty for Plain.
	Suffix() string
	// NewReader wraps r with a decompressor.
	NewReader(r io.Reader) (io.ReadCloser, error)
	// NewWriter wraps w with a compressor. Closing the returned writer flushes the
	// framing but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// Plain is the identity codec used for any file without a registered suffix.
var Plain Codec = plainCodec{}

type plainCodec struct{}

func (plainCodec) Name() string   { return "plain" }
func (plainCodec) Suffix() string { return "" }

func (plainCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (plainCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// ForPath returns the codec registered for the final suffix of path, or Plain.
func ForPath(path string) Codec {
	if c, ok := ForSuffix(filepath.Ext(path)); ok {
		return c
	}
	return Plain
}

// IsCompressed reports whether path carries a registered compressed suffix.
func IsCompressed(path string) bool {
	return ForPath(path) != Plain
}

// StripSuffix removes a registered compressed suffix from name, if present.
// Suffixes match case-insensitively, so "a.txt.GZ" becomes "a.txt".
func StripSuffix(name string) string {
	if ForPath(name) == Plain {
		return name
	}
	return name[:len(name)-len(filepath.Ext(name))]
}
