package bag

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aweris/bag/internal/compression"
)

// Compression selects the stream compression for Export.
// Re-exported from internal/compression for convenience.
type Compression = compression.Format

const (
	CompressionNone = compression.None
	CompressionGzip = compression.Gzip
	CompressionZstd = compression.Zstd
)

// CompressionByExtension picks the Compression matching an archive file
// name, e.g. ".tar.gz" or ".tar.zst".
func CompressionByExtension(name string) Compression {
	return compression.ByExtension(name)
}

// Export serializes the on-disk bag directory as a tar archive, optionally
// compressed. Archive entries are prefixed with the bag directory name so
// the archive unpacks into a single directory. Export reads from disk:
// save pending mutations first or they will not be included.
func (b *Bag) Export(w io.Writer, format Compression) error {
	cw, err := compression.NewWriter(w, format)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)

	prefix := filepath.Base(b.baseDir)
	err = filepath.WalkDir(b.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(prefix, rel))
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
