package bag

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// scope selects which manifest family an operation works against.
type scope int

const (
	payloadScope scope = iota
	tagScope
)

func (b *Bag) tables(s scope) map[Algorithm]*Manifest {
	if s == payloadScope {
		return b.payload
	}
	return b.tags
}

func (b *Bag) algorithms(s scope) []Algorithm {
	return sortedAlgorithms(b.tables(s))
}

// AddData stages a new payload file with the given content at dest,
// relative to the payload directory. A manifest entry is recorded per
// active payload algorithm; the bytes reach disk on the next Save.
func (b *Bag) AddData(dest string, data []byte) (*Bag, error) {
	key, err := payloadKey(dest)
	if err != nil {
		return nil, err
	}
	return b.addData(key, data, payloadScope)
}

// AddFile stages the file or directory at src as payload content at dest,
// relative to the payload directory. Directory sources are added
// recursively; the whole addition fails without effect if any destination
// collides. Digests are computed from the source now, the copy happens on
// the next Save.
func (b *Bag) AddFile(ctx context.Context, dest, src string) (*Bag, error) {
	key, err := payloadKey(dest)
	if err != nil {
		return nil, err
	}
	return b.addFromPath(ctx, key, src, payloadScope)
}

// RemovePayloadFile removes the payload file at dest from the model and
// from every payload manifest. The on-disk file is deleted on the next
// Save; ancestor directories left empty are pruned then, except the
// payload directory itself. Directories and fetch destinations are not
// removable here.
func (b *Bag) RemovePayloadFile(dest string) (*Bag, error) {
	key, err := payloadKey(dest)
	if err != nil {
		return nil, err
	}
	if _, ok := b.fetch.ByPath(key); ok {
		return nil, fmt.Errorf("%w: %s is a fetch reference", ErrNotFound, dest)
	}
	return b.removeFile(key, payloadScope)
}

// AddTagData stages a new tag file with the given content at dest,
// relative to the bag root. System-managed names (declaration, bag-info,
// fetch, manifests) are protected.
func (b *Bag) AddTagData(dest string, data []byte) (*Bag, error) {
	key, err := tagKey(dest)
	if err != nil {
		return nil, err
	}
	return b.addData(key, data, tagScope)
}

// AddTagFile stages the file or directory at src as tag content at dest,
// relative to the bag root.
func (b *Bag) AddTagFile(ctx context.Context, dest, src string) (*Bag, error) {
	key, err := tagKey(dest)
	if err != nil {
		return nil, err
	}
	return b.addFromPath(ctx, key, src, tagScope)
}

// RemoveTagFile removes the tag file at dest from the model and from every
// tag manifest. System-managed names are protected.
func (b *Bag) RemoveTagFile(dest string) (*Bag, error) {
	key, err := tagKey(dest)
	if err != nil {
		return nil, err
	}
	return b.removeFile(key, tagScope)
}

func (b *Bag) addData(key string, data []byte, s scope) (*Bag, error) {
	if err := b.checkCollision(key); err != nil {
		return nil, err
	}
	nb := b.clone()
	sf := stagedFile{data: slices.Clone(data), size: int64(len(data))}
	nb.stage(key, sf, digestBytes(data, nb.algorithms(s)), s)
	nb.refreshRenderedTagEntries()
	return nb, nil
}

// stage records a pending write and its manifest entries.
func (b *Bag) stage(key string, sf stagedFile, sums map[Algorithm]string, s scope) {
	b.staged[key] = sf
	delete(b.removed, key)
	for a, m := range b.tables(s) {
		m.set(key, sums[a])
	}
}

func (b *Bag) addFromPath(ctx context.Context, key, src string, s scope) (*Bag, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", src, err)
	}

	if !fi.IsDir() {
		if err := b.checkCollision(key); err != nil {
			return nil, err
		}
		sums, size, err := digestFile(src, b.algorithms(s))
		if err != nil {
			return nil, err
		}
		nb := b.clone()
		nb.stage(key, stagedFile{src: src, size: size}, sums, s)
		nb.refreshRenderedTagEntries()
		return nb, nil
	}

	files, err := collectFiles(src)
	if err != nil {
		return nil, err
	}

	// validate every destination before staging anything
	byKey := make(map[string]string, len(files))
	for rel, abs := range files {
		childKey := key + "/" + rel
		if err := b.checkCollision(childKey); err != nil {
			return nil, err
		}
		byKey[childKey] = abs
	}

	sums, err := digestPaths(ctx, byKey, b.algorithms(s), b.jobs)
	if err != nil {
		return nil, err
	}

	nb := b.clone()
	for childKey, abs := range byKey {
		fi, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", abs, err)
		}
		nb.stage(childKey, stagedFile{src: abs, size: fi.Size()}, sums[childKey], s)
	}
	nb.refreshRenderedTagEntries()
	return nb, nil
}

func (b *Bag) removeFile(key string, s scope) (*Bag, error) {
	if _, isStaged := b.staged[key]; !isStaged {
		if fi, err := os.Stat(b.abs(key)); err == nil && fi.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrIsDirectory, key)
		}
	}
	if !b.exists(key) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	nb := b.clone()
	delete(nb.staged, key)
	if nb.onDiskFile(key) {
		nb.removed[key] = struct{}{}
	}
	for _, m := range nb.tables(s) {
		if _, ok := m.Digest(key); ok {
			m.Remove(key)
		}
	}
	nb.refreshRenderedTagEntries()
	return nb, nil
}

// collectFiles walks a directory source and returns its regular files as
// slash-relative path → absolute path.
func collectFiles(src string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", src, err)
	}
	return files, nil
}
