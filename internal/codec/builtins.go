package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Built-in codec names.
const (
	NameGzip = "gzip"
	NameZstd = "zstd"
	NameLZ4  = "lz4"
)

func init() {
	Register(gzipCodec{})
	Register(zstdCodec{})
	Register(lz4Codec{})
}

type gzipCodec struct{}

func (gzipCodec) Name() string   { return NameGzip }
func (gzipCodec) Suffix() string { return ".gz" }

// NewReader accepts concatenated gzip members, which is what `cat a.gz b.gz` produces.
func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	return zw, nil
}

type zstdCodec struct{}

func (zstdCodec) Name() string   { return NameZstd }
func (zstdCodec) Suffix() string { return ".zst" }

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func (zstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return enc, nil
}

type lz4Codec struct{}

func (lz4Codec) Name() string   { return NameLZ4 }
func (lz4Codec) Suffix() string { return ".lz4" }

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lz4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}
