package bag

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency bounds parallel file digesting.
const DefaultConcurrency = 4

// digester feeds one pass over the data to every requested algorithm.
type digester struct {
	io.Writer
	algorithms []Algorithm
	hashes     []hash.Hash
}

func newDigester(algorithms []Algorithm) *digester {
	d := &digester{algorithms: algorithms}
	writers := make([]io.Writer, 0, len(algorithms))
	for _, a := range algorithms {
		h := a.New()
		d.hashes = append(d.hashes, h)
		writers = append(writers, h)
	}
	if len(writers) == 0 {
		d.Writer = io.Discard
	} else {
		d.Writer = io.MultiWriter(writers...)
	}
	return d
}

// sums returns the lowercase hex digest per algorithm.
func (d *digester) sums() map[Algorithm]string {
	out := make(map[Algorithm]string, len(d.algorithms))
	for i, a := range d.algorithms {
		out[a] = hex.EncodeToString(d.hashes[i].Sum(nil))
	}
	return out
}

func digestBytes(data []byte, algorithms []Algorithm) map[Algorithm]string {
	d := newDigester(algorithms)
	d.Write(data)
	return d.sums()
}

func digestReader(r io.Reader, algorithms []Algorithm) (map[Algorithm]string, int64, error) {
	d := newDigester(algorithms)
	n, err := io.Copy(d, r)
	if err != nil {
		return nil, 0, err
	}
	return d.sums(), n, nil
}

func digestFile(path string, algorithms []Algorithm) (map[Algorithm]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	sums, n, err := digestReader(f, algorithms)
	if err != nil {
		return nil, 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return sums, n, nil
}

// digestPaths digests the given files in parallel. Keys of files are the
// labels to report results under, values are the filesystem paths to read.
func digestPaths(ctx context.Context, files map[string]string, algorithms []Algorithm, jobs int) (map[string]map[Algorithm]string, error) {
	if jobs <= 0 {
		jobs = DefaultConcurrency
	}

	var mu sync.Mutex
	results := make(map[string]map[Algorithm]string, len(files))

	p := pool.New().WithMaxGoroutines(jobs).WithContext(ctx).WithCancelOnError()
	for label, path := range files {
		p.Go(func(ctx context.Context) error {
			sums, _, err := digestFile(path, algorithms)
			if err != nil {
				return err
			}
			mu.Lock()
			results[label] = sums
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
