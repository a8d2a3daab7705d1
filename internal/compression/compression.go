// Package compression wraps sink writers and readers with the supported codecs.
package compression

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
)

// Supported lists the accepted compression names.
var Supported = []string{"none", "gzip", "bzip2", "zstd"}

// NewWriter returns an io.WriteCloser that wraps w with the requested compression.
// Supported: "gzip", "bzip2", "zstd", or "" / "none" (no compression).
// Closing the returned writer flushes the codec but does not close w.
func NewWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case "gzip":
		return gzip.NewWriter(w), nil
	case "bzip2":
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	case "zstd":
		return zstd.NewWriter(w)
	case "", "none":
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// NewReader is the inverse of NewWriter.
func NewReader(r io.Reader, compression string) (io.ReadCloser, error) {
	switch compression {
	case "gzip":
		return gzip.NewReader(r)
	case "bzip2":
		return bzip2.NewReader(r, nil)
	case "zstd":
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case "", "none":
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// NewCascadeWriter compresses into underlying and closes both, codec first.
func NewCascadeWriter(underlying io.WriteCloser, compression string) (io.WriteCloser, error) {
	w, err := NewWriter(underlying, compression)
	if err != nil {
		return nil, err
	}
	return &cascadeWriteCloser{compressor: w, underlying: underlying}, nil
}

// Validate reports whether compression names a supported codec.
func Validate(compression string) error {
	w, err := NewWriter(io.Discard, compression)
	if err != nil {
		return err
	}
	return w.Close()
}
