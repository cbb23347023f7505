package bag

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AddPayloadAlgorithm activates a checksum algorithm for the payload scope
// and returns the new bag. The manifest is populated by digesting every
// payload file: realized files and staged content locally, fetch
// destinations by retrieving the remote source.
//
// When the algorithm is already active and force is false, the existing
// digests are trusted as-is and the bag is returned unchanged, even if the
// underlying files have drifted since they were recorded. Pass force to
// redigest everything from current bytes.
//
// The new manifest is itself a tag file, so an entry for it is recorded in
// every tag manifest immediately.
func (b *Bag) AddPayloadAlgorithm(ctx context.Context, a Algorithm, force bool) (*Bag, error) {
	if _, ok := b.payload[a]; ok && !force {
		return b, nil
	}

	m := NewManifest(a)

	// staged content
	diskFiles := make(map[string]string)
	for key, sf := range b.staged {
		if !strings.HasPrefix(key, payloadDirName+"/") {
			continue
		}
		if sf.data != nil {
			m.set(key, digestBytes(sf.data, []Algorithm{a})[a])
		} else {
			diskFiles[key] = sf.src
		}
	}

	// realized files
	if err := b.walkPayload(func(key, abs string) {
		if _, ok := b.staged[key]; !ok {
			diskFiles[key] = abs
		}
	}); err != nil {
		return nil, err
	}

	sums, err := digestPaths(ctx, diskFiles, []Algorithm{a}, b.jobs)
	if err != nil {
		return nil, err
	}
	for key, s := range sums {
		m.set(key, s[a])
	}

	// fetch destinations: one blocking retrieval per entry
	for e := range b.fetch.Entries() {
		digest, _, err := b.materialize(ctx, e.URL, []Algorithm{a})
		if err != nil {
			return nil, err
		}
		m.set(e.Path, digest[a])
	}

	nb := b.clone()
	nb.payload[a] = m
	nb.refreshRenderedTagEntries()
	return nb, nil
}

// RemovePayloadAlgorithm deactivates a payload checksum algorithm, drops
// its manifest, and removes the manifest's entry from every tag manifest.
// Removing the last payload algorithm is legal in memory; Save rejects it.
func (b *Bag) RemovePayloadAlgorithm(a Algorithm) (*Bag, error) {
	if _, ok := b.payload[a]; !ok {
		return nil, fmt.Errorf("%w: payload algorithm %s", ErrNotFound, a)
	}
	nb := b.clone()
	delete(nb.payload, a)
	name := manifestPrefix + a.String()
	for _, tm := range nb.tags {
		if _, ok := tm.Digest(name); ok {
			tm.Remove(name)
		}
	}
	return nb, nil
}

// AddTagAlgorithm activates a checksum algorithm for the tag scope,
// populating its manifest from every tag file currently present: the
// rendered system files, staged tag files, and tag files on disk. Tag
// manifests never list themselves. Semantics of force match
// AddPayloadAlgorithm.
func (b *Bag) AddTagAlgorithm(ctx context.Context, a Algorithm, force bool) (*Bag, error) {
	if _, ok := b.tags[a]; ok && !force {
		return b, nil
	}

	m := NewManifest(a)
	rendered := b.renderedTagFiles()
	for name, content := range rendered {
		m.set(name, digestBytes(content, []Algorithm{a})[a])
	}

	diskFiles := make(map[string]string)
	for key, sf := range b.staged {
		if strings.HasPrefix(key, payloadDirName+"/") {
			continue
		}
		if sf.data != nil {
			m.set(key, digestBytes(sf.data, []Algorithm{a})[a])
		} else {
			diskFiles[key] = sf.src
		}
	}
	if err := b.walkTagFiles(func(key, abs string) {
		if _, staged := b.staged[key]; staged {
			return
		}
		if _, ok := rendered[key]; ok {
			return
		}
		diskFiles[key] = abs
	}); err != nil {
		return nil, err
	}

	sums, err := digestPaths(ctx, diskFiles, []Algorithm{a}, b.jobs)
	if err != nil {
		return nil, err
	}
	for key, s := range sums {
		m.set(key, s[a])
	}

	nb := b.clone()
	nb.tags[a] = m
	return nb, nil
}

// RemoveTagAlgorithm deactivates a tag checksum algorithm and drops its
// manifest. Other manifests are untouched; the stale tagmanifest file is
// deleted on the next Save.
func (b *Bag) RemoveTagAlgorithm(a Algorithm) (*Bag, error) {
	if _, ok := b.tags[a]; !ok {
		return nil, fmt.Errorf("%w: tag algorithm %s", ErrNotFound, a)
	}
	nb := b.clone()
	delete(nb.tags, a)
	return nb, nil
}

// walkPayload visits every realized payload file not scheduled for
// removal, as (bag-relative key, absolute path).
func (b *Bag) walkPayload(visit func(key, abs string)) error {
	root := b.PayloadDir()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if _, gone := b.removed[key]; !gone {
			visit(key, p)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	return nil
}

// walkTagFiles visits every realized tag file not scheduled for removal,
// skipping the payload tree and tag manifest files.
func (b *Bag) walkTagFiles(visit func(key, abs string)) error {
	err := filepath.WalkDir(b.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p == b.PayloadDir() {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.Contains(key, "/") && strings.HasPrefix(key, tagManifestPrefix) {
			return nil
		}
		if _, gone := b.removed[key]; !gone {
			visit(key, p)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walk %s: %w", b.baseDir, err)
	}
	return nil
}
