// Package compression wraps the stream compressors used for serialized
// bag archives.
package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format selects the compression applied around a tar stream.
type Format string

const (
	None Format = "none"
	Gzip Format = "gzip"
	Zstd Format = "zstd"
)

// ByExtension picks the format matching a file name, defaulting to None.
func ByExtension(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return Gzip
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return Zstd
	default:
		return None
	}
}

// NewWriter wraps w with the chosen compressor. Closing the returned
// writer flushes the compressor but does not close w.
func NewWriter(w io.Writer, f Format) (io.WriteCloser, error) {
	switch f {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unknown compression format %q", f)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
