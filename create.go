package bag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// New builds an empty bag model rooted at baseDir. Nothing is written to
// disk; the directory layout appears on the first Save. The tag manifests
// already cover the declaration, bag-info, and payload manifest files that
// Save will create.
func New(baseDir string, opts ...Option) (*Bag, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrOutOfScope)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	b := &Bag{
		baseDir:  filepath.Clean(baseDir),
		version:  o.Version,
		encoding: o.Encoding,
		info:     NewInfo(),
		payload:  make(map[Algorithm]*Manifest),
		tags:     make(map[Algorithm]*Manifest),
		fetch:    NewFetchSet(),
		staged:   make(map[string]stagedFile),
		removed:  make(map[string]struct{}),
		fetcher:  o.Fetcher,
		jobs:     o.Concurrency,
	}
	for _, p := range o.Info {
		b.info.Add(p.key, p.value)
	}
	for _, a := range o.Algorithms {
		b.payload[a] = NewManifest(a)
	}
	tagAlgorithms := o.TagAlgorithms
	if tagAlgorithms == nil {
		tagAlgorithms = o.Algorithms
	}
	for _, a := range tagAlgorithms {
		b.tags[a] = NewManifest(a)
	}

	b.refreshRenderedTagEntries()
	return b, nil
}

// CreateFromDirectory turns an existing directory into a bag in place: its
// children are moved under the payload directory and digested from disk.
// The tag files do not exist until the returned bag is saved.
func CreateFromDirectory(ctx context.Context, dir string, opts ...Option) (*Bag, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("create bag: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("create bag: %s is not a directory", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, declarationName)); err == nil {
		return nil, fmt.Errorf("%w: %s is already a bag", ErrAlreadyExists, dir)
	}

	dataDir := filepath.Join(dir, payloadDirName)
	if _, err := os.Stat(dataDir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dataDir)
	}
	if err := os.Mkdir(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create bag: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("create bag: %w", err)
	}
	for _, e := range entries {
		if e.Name() == payloadDirName {
			continue
		}
		from := filepath.Join(dir, e.Name())
		to := filepath.Join(dataDir, e.Name())
		if err := os.Rename(from, to); err != nil {
			return nil, fmt.Errorf("create bag: %w", err)
		}
	}

	b, err := New(dir, opts...)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	if err := b.walkPayload(func(key, abs string) {
		files[key] = abs
	}); err != nil {
		return nil, err
	}
	sums, err := digestPaths(ctx, files, b.PayloadAlgorithms(), b.jobs)
	if err != nil {
		return nil, err
	}
	for key, s := range sums {
		for a, m := range b.payload {
			m.set(key, s[a])
		}
	}

	b.refreshRenderedTagEntries()
	return b, nil
}
