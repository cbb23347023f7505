package bag

import (
	"bufio"
	"bytes"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Manifest maps bag-relative file paths to lowercase hex digests for a
// single algorithm. One instance covers one scope: either the payload tree
// or the tag files. It is a plain in-memory table; nothing here touches
// storage.
type Manifest struct {
	algorithm Algorithm
	order     []string
	digests   map[string]string
}

// NewManifest creates an empty manifest for the given algorithm.
func NewManifest(algorithm Algorithm) *Manifest {
	return &Manifest{
		algorithm: algorithm,
		digests:   make(map[string]string),
	}
}

// Algorithm returns the checksum algorithm this manifest is for.
func (m *Manifest) Algorithm() Algorithm { return m.algorithm }

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.digests) }

// Digest returns the recorded digest for path.
func (m *Manifest) Digest(path string) (string, bool) {
	d, ok := m.digests[path]
	return d, ok
}

// Add records a new entry. Manifests never silently overwrite: adding a
// path that is already present fails with ErrAlreadyExists. Use Recompute
// to replace the digest of an existing entry.
func (m *Manifest) Add(path, digest string) error {
	if _, ok := m.digests[path]; ok {
		return fmt.Errorf("%w: %s in manifest-%s", ErrAlreadyExists, path, m.algorithm)
	}
	m.order = append(m.order, path)
	m.digests[path] = digest
	return nil
}

// Remove drops the entry for path.
func (m *Manifest) Remove(path string) error {
	if _, ok := m.digests[path]; !ok {
		return fmt.Errorf("%w: %s in manifest-%s", ErrNotFound, path, m.algorithm)
	}
	delete(m.digests, path)
	m.order = slices.DeleteFunc(m.order, func(p string) bool { return p == path })
	return nil
}

// Recompute replaces the digest for an existing entry.
func (m *Manifest) Recompute(path, digest string) error {
	if _, ok := m.digests[path]; !ok {
		return fmt.Errorf("%w: %s in manifest-%s", ErrNotFound, path, m.algorithm)
	}
	m.digests[path] = digest
	return nil
}

// set records the digest for path whether or not it is already present.
// Used by the save machinery when reconciling tag manifests.
func (m *Manifest) set(path, digest string) {
	if _, ok := m.digests[path]; !ok {
		m.order = append(m.order, path)
	}
	m.digests[path] = digest
}

// Entries iterates over (path, digest) pairs in insertion order. The
// sequence is restartable. Serialization does not depend on this order;
// manifest files are always written sorted by path.
func (m *Manifest) Entries() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, p := range m.order {
			if !yield(p, m.digests[p]) {
				return
			}
		}
	}
}

// Paths returns the entry paths sorted lexically.
func (m *Manifest) Paths() []string {
	paths := slices.Collect(maps.Keys(m.digests))
	slices.Sort(paths)
	return paths
}

func (m *Manifest) clone() *Manifest {
	return &Manifest{
		algorithm: m.algorithm,
		order:     slices.Clone(m.order),
		digests:   maps.Clone(m.digests),
	}
}

// serialize renders the manifest file content: one "digest  path" line per
// entry, sorted by path. The two spaces match GNU md5sum output.
func (m *Manifest) serialize() []byte {
	var buf bytes.Buffer
	for _, p := range m.Paths() {
		fmt.Fprintf(&buf, "%s  %s\n", m.digests[p], p)
	}
	return buf.Bytes()
}

// parseManifest reads manifest file content produced by serialize. It also
// accepts a single space or tab as the separator, which older tools emit.
func parseManifest(algorithm Algorithm, data []byte) (*Manifest, error) {
	m := NewManifest(algorithm)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		digest, path, ok := strings.Cut(line, " ")
		if !ok {
			digest, path, ok = strings.Cut(line, "\t")
		}
		if !ok {
			return nil, fmt.Errorf("%w: manifest-%s line %q", ErrFormat, algorithm, line)
		}
		path = strings.TrimLeft(path, " \t")
		if digest == "" || path == "" {
			return nil, fmt.Errorf("%w: manifest-%s line %q", ErrFormat, algorithm, line)
		}
		if err := m.Add(path, strings.ToLower(digest)); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
