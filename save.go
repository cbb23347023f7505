package bag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Save reconciles the bag directory with the model and returns the saved
// bag. It is the only operation that writes to disk. Three phases run as
// one unit:
//
//  1. realize staged payload/tag writes and pending removals, pruning
//     directories the removals emptied
//  2. derive the managed metadata (Payload-Oxum, Bagging-Date, Bag-Size)
//     and write every leaf tag file — declaration, bag-info, payload
//     manifests, fetch — deleting the ones no longer configured
//  3. recompute every tag-manifest entry from the bytes now on disk and
//     write the tagmanifest files
//
// Phase 3 reaches a fixed point in this single extra pass: rewriting the
// other tag files changed their digests, but tag manifests never list
// themselves, so nothing written in phase 3 invalidates phase 3.
//
// Files whose on-disk content already matches are not rewritten, which
// also makes a second Save with no intervening mutation byte-identical.
//
// A bag with no payload manifest algorithm fails with ErrInvariant before
// anything is written. On an I/O error the directory may be left
// inconsistent; re-read it before retrying.
func (b *Bag) Save(ctx context.Context) (*Bag, error) {
	if len(b.payload) == 0 {
		return nil, fmt.Errorf("%w: bag must contain at least one payload manifest", ErrInvariant)
	}

	nb := b.clone()

	if err := os.MkdirAll(nb.PayloadDir(), 0755); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	if err := nb.applyPending(); err != nil {
		return nil, err
	}

	nb.deriveInfo()

	rendered := nb.renderedTagFiles()
	for _, name := range slices.Sorted(maps.Keys(rendered)) {
		if err := writeIfChanged(nb.abs(name), rendered[name]); err != nil {
			return nil, err
		}
	}
	if err := nb.deleteStaleTopLevel(manifestPrefix, nb.payload); err != nil {
		return nil, err
	}
	if nb.fetch.Len() == 0 {
		if err := os.Remove(nb.abs(fetchName)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("save: %w", err)
		}
	}

	if err := nb.writeTagManifests(ctx); err != nil {
		return nil, err
	}

	nb.staged = make(map[string]stagedFile)
	nb.removed = make(map[string]struct{})
	return nb, nil
}

// applyPending writes staged files and deletes removed ones, pruning
// directories that removals emptied. The payload directory root and the
// bag root are never pruned.
func (b *Bag) applyPending() error {
	for _, key := range slices.Sorted(maps.Keys(b.staged)) {
		sf := b.staged[key]
		full := b.abs(key)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		var err error
		if sf.data != nil {
			err = os.WriteFile(full, sf.data, 0644)
		} else {
			err = copyFile(sf.src, full)
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(b.removed)) {
		if err := os.Remove(b.abs(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("save: %w", err)
		}
		b.pruneEmptyDirs(filepath.Dir(b.abs(key)))
	}
	return nil
}

// pruneEmptyDirs removes empty directories walking up from dir, stopping
// at the payload directory root and the bag root.
func (b *Bag) pruneEmptyDirs(dir string) {
	for {
		if dir == b.baseDir || dir == b.PayloadDir() {
			return
		}
		if err := os.Remove(dir); err != nil {
			return // not empty, or already gone
		}
		dir = filepath.Dir(dir)
	}
}

// deriveInfo recomputes the managed metadata from the payload the model
// tracks: the byte/file-count summary and today's packaging date.
func (b *Bag) deriveInfo() {
	var total int64
	keys := b.payloadKeys()
	for _, key := range keys {
		if sf, ok := b.staged[key]; ok {
			total += sf.size
			continue
		}
		if e, ok := b.fetch.ByPath(key); ok {
			if e.Size > 0 {
				total += e.Size
			}
			continue
		}
		if fi, err := os.Stat(b.abs(key)); err == nil {
			total += fi.Size()
		}
	}
	b.info.Set(TagPayloadOxum, fmt.Sprintf("%d.%d", total, len(keys)))
	b.info.SetBaggingDate(time.Now())
	b.info.Set(TagBagSize, humanSize(total))
}

// writeTagManifests rebuilds every tag manifest from the files now on
// disk and writes the tagmanifest files, deleting stale ones.
func (b *Bag) writeTagManifests(ctx context.Context) error {
	files := make(map[string]string)
	if err := b.walkTagFiles(func(key, abs string) {
		files[key] = abs
	}); err != nil {
		return err
	}

	algorithms := b.TagAlgorithms()
	sums, err := digestPaths(ctx, files, algorithms, b.jobs)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	for _, a := range algorithms {
		m := NewManifest(a)
		for _, key := range slices.Sorted(maps.Keys(sums)) {
			m.set(key, sums[key][a])
		}
		b.tags[a] = m
		if err := writeIfChanged(b.abs(tagManifestPrefix+a.String()), m.serialize()); err != nil {
			return err
		}
	}

	return b.deleteStaleTopLevel(tagManifestPrefix, b.tags)
}

// deleteStaleTopLevel removes top-level files with the given manifest
// prefix whose algorithm is no longer configured.
func (b *Bag) deleteStaleTopLevel(prefix string, configured map[Algorithm]*Manifest) error {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		// manifest- is a prefix of tagmanifest- targets, keep them apart
		if prefix == manifestPrefix && len(name) >= len(tagManifestPrefix) && name[:len(tagManifestPrefix)] == tagManifestPrefix {
			continue
		}
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		a, err := ParseAlgorithm(name[len(prefix):])
		if err != nil {
			continue // not a manifest this library manages
		}
		if _, ok := configured[a]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(b.baseDir, name)); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// writeIfChanged writes content only when the existing file differs,
// keeping repeated saves byte-stable and cheap.
func writeIfChanged(path string, content []byte) error {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Metric units, matching how transfer tools report bag sizes.
const (
	kb int64 = 1000
	mb       = 1000 * kb
	gb       = 1000 * mb
	tb       = 1000 * gb
)

func humanSize(size int64) string {
	var units string
	switch {
	case size < kb:
		units = "Bytes"
	case size < mb:
		size /= kb
		units = "KB"
	case size < gb:
		size /= mb
		units = "MB"
	case size < tb:
		size /= gb
		units = "GB"
	default:
		size /= tb
		units = "TB"
	}
	return fmt.Sprintf("%d %s", size, units)
}
