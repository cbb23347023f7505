package bag

import (
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aweris/bag/internal/fetch"
)

// Fixed on-disk names. Everything outside data/ is a tag file.
const (
	payloadDirName    = "data"
	declarationName   = "bagit-declaration"
	infoName          = "bag-info"
	fetchName         = "fetch"
	manifestPrefix    = "manifest-"
	tagManifestPrefix = "tagmanifest-"
)

// DefaultEncoding is the tag file text encoding used unless overridden.
const DefaultEncoding = "UTF-8"

// Version is the major.minor format version recorded in the declaration.
type Version struct {
	Major int
	Minor int
}

// DefaultVersion is the format version written by New.
var DefaultVersion = Version{Major: 1, Minor: 0}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

func parseVersion(s string) (Version, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("%w: version %q", ErrFormat, s)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: version %q", ErrFormat, s)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: version %q", ErrFormat, s)
	}
	return Version{Major: major, Minor: minor}, nil
}

// stagedFile is content recorded in the model but not yet written to the
// bag directory. Either data holds the bytes inline or src names a
// filesystem source to copy at save time.
type stagedFile struct {
	data []byte
	src  string
	size int64
}

// Bag is the immutable in-memory model of one bag directory: payload and
// tag checksum manifests for any number of algorithms, descriptive
// metadata, and fetch references for payload held remotely.
//
// Every mutation returns a new Bag value and leaves the receiver
// untouched; nothing is written to disk until Save. Concurrent readers of
// one Bag value are safe, concurrent saves of one base directory are not.
type Bag struct {
	baseDir  string
	version  Version
	encoding string

	info    *Info
	payload map[Algorithm]*Manifest
	tags    map[Algorithm]*Manifest
	fetch   *FetchSet

	// pending filesystem changes, applied by Save
	staged  map[string]stagedFile
	removed map[string]struct{}

	fetcher fetch.Fetcher
	jobs    int
}

// BaseDir returns the bag root directory.
func (b *Bag) BaseDir() string { return b.baseDir }

// PayloadDir returns the payload directory (baseDir/data).
func (b *Bag) PayloadDir() string { return filepath.Join(b.baseDir, payloadDirName) }

// Version returns the format version.
func (b *Bag) Version() Version { return b.version }

// Encoding returns the tag file text encoding.
func (b *Bag) Encoding() string { return b.encoding }

// Info returns a copy of the bag metadata. Mutate metadata through
// AddInfo, SetInfo, and RemoveInfo.
func (b *Bag) Info() *Info { return b.info.clone() }

// Fetch returns the fetch entry registry. The returned set is a shared
// read-only view; mutate it through AddFetch and the RemoveFetch variants.
func (b *Bag) Fetch() *FetchSet { return b.fetch }

// PayloadAlgorithms returns the active payload checksum algorithms.
func (b *Bag) PayloadAlgorithms() []Algorithm { return sortedAlgorithms(b.payload) }

// TagAlgorithms returns the active tag checksum algorithms.
func (b *Bag) TagAlgorithms() []Algorithm { return sortedAlgorithms(b.tags) }

// PayloadManifest returns the payload manifest for the given algorithm.
// The returned manifest is a shared read-only view.
func (b *Bag) PayloadManifest(a Algorithm) (*Manifest, bool) {
	m, ok := b.payload[a]
	return m, ok
}

// TagManifest returns the tag manifest for the given algorithm. The
// returned manifest is a shared read-only view.
func (b *Bag) TagManifest(a Algorithm) (*Manifest, bool) {
	m, ok := b.tags[a]
	return m, ok
}

// AddInfo appends a metadata value under key and returns the new bag.
func (b *Bag) AddInfo(key, value string) *Bag {
	nb := b.clone()
	nb.info.Add(key, value)
	return nb
}

// SetInfo replaces all metadata values under key and returns the new bag.
func (b *Bag) SetInfo(key string, values ...string) *Bag {
	nb := b.clone()
	nb.info.Set(key, values...)
	return nb
}

// RemoveInfo deletes key and all its values and returns the new bag.
// Removing an absent key is a no-op.
func (b *Bag) RemoveInfo(key string) *Bag {
	nb := b.clone()
	nb.info.Remove(key)
	return nb
}

func (b *Bag) clone() *Bag {
	nb := *b
	nb.info = b.info.clone()
	nb.payload = cloneManifests(b.payload)
	nb.tags = cloneManifests(b.tags)
	nb.fetch = b.fetch.clone()
	nb.staged = maps.Clone(b.staged)
	nb.removed = maps.Clone(b.removed)
	return &nb
}

func cloneManifests(m map[Algorithm]*Manifest) map[Algorithm]*Manifest {
	out := make(map[Algorithm]*Manifest, len(m))
	for a, manifest := range m {
		out[a] = manifest.clone()
	}
	return out
}

func sortedAlgorithms(m map[Algorithm]*Manifest) []Algorithm {
	algs := slices.Collect(maps.Keys(m))
	slices.Sort(algs)
	return algs
}

// abs joins a bag-relative slash path onto the base directory.
func (b *Bag) abs(key string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(key))
}

// payloadKey converts a destination relative to the payload directory into
// a bag-relative key ("data/..."). Destinations escaping the payload
// directory fail with ErrOutOfScope.
func payloadKey(dest string) (string, error) {
	clean, err := cleanRelPath(dest)
	if err != nil {
		return "", err
	}
	return payloadDirName + "/" + clean, nil
}

// tagKey converts a destination relative to the bag root into a
// bag-relative key. Destinations inside the payload directory are out of
// scope; reserved tag file names are protected.
func tagKey(dest string) (string, error) {
	clean, err := cleanRelPath(dest)
	if err != nil {
		return "", err
	}
	if clean == payloadDirName || strings.HasPrefix(clean, payloadDirName+"/") {
		return "", fmt.Errorf("%w: %s is inside the payload directory", ErrOutOfScope, dest)
	}
	if isProtected(clean) {
		return "", fmt.Errorf("%w: %s", ErrProtectedPath, clean)
	}
	return clean, nil
}

func cleanRelPath(dest string) (string, error) {
	dest = filepath.ToSlash(dest)
	if dest == "" || path.IsAbs(dest) {
		return "", fmt.Errorf("%w: %q", ErrOutOfScope, dest)
	}
	clean := path.Clean(dest)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrOutOfScope, dest)
	}
	return clean, nil
}

// isProtected reports whether key names a system-managed tag file. Those
// are written only by Save.
func isProtected(key string) bool {
	if strings.Contains(key, "/") {
		return false
	}
	if key == declarationName || key == infoName || key == fetchName {
		return true
	}
	return strings.HasPrefix(key, manifestPrefix) || strings.HasPrefix(key, tagManifestPrefix)
}

// anyPayloadManifest returns one payload manifest; all of them share a
// single key set.
func (b *Bag) anyPayloadManifest() *Manifest {
	for _, m := range b.payload {
		return m
	}
	return nil
}

// payloadKeys returns the payload file keys ("data/...") tracked by the
// model, sorted. With no configured algorithm the staged and fetch sets
// still contribute.
func (b *Bag) payloadKeys() []string {
	set := make(map[string]struct{})
	if m := b.anyPayloadManifest(); m != nil {
		for p := range m.Entries() {
			set[p] = struct{}{}
		}
	}
	for key := range b.staged {
		if strings.HasPrefix(key, payloadDirName+"/") {
			set[key] = struct{}{}
		}
	}
	for e := range b.fetch.Entries() {
		set[e.Path] = struct{}{}
	}
	keys := slices.Collect(maps.Keys(set))
	slices.Sort(keys)
	return keys
}

// exists reports whether key refers to a file the model considers present:
// staged, recorded in the given manifest scope, a fetch destination
// (payload scope only), or on disk and not scheduled for removal.
func (b *Bag) exists(key string) bool {
	if _, ok := b.staged[key]; ok {
		return true
	}
	if _, ok := b.removed[key]; ok {
		return false
	}
	if _, ok := b.fetch.ByPath(key); ok {
		return true
	}
	scope := b.tags
	if strings.HasPrefix(key, payloadDirName+"/") {
		scope = b.payload
	}
	for _, m := range scope {
		_, ok := m.Digest(key)
		return ok || b.onDiskFile(key)
	}
	return b.onDiskFile(key)
}

func (b *Bag) onDiskFile(key string) bool {
	fi, err := os.Stat(b.abs(key))
	return err == nil && !fi.IsDir()
}

// checkCollision verifies that key can become a new file: no existing
// file, staged file, fetch destination, or directory may occupy it, and no
// tracked file may live underneath it.
func (b *Bag) checkCollision(key string) error {
	if b.exists(key) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}
	if fi, err := os.Stat(b.abs(key)); err == nil && fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrAlreadyExists, key)
	}
	prefix := key + "/"
	for staged := range b.staged {
		if strings.HasPrefix(staged, prefix) {
			return fmt.Errorf("%w: %s shadows %s", ErrAlreadyExists, key, staged)
		}
	}
	if m := b.anyPayloadManifest(); m != nil {
		for p := range m.Entries() {
			if strings.HasPrefix(p, prefix) {
				return fmt.Errorf("%w: %s shadows %s", ErrAlreadyExists, key, p)
			}
		}
	}
	return nil
}

// renderDeclaration produces the bagit-declaration file content.
func (b *Bag) renderDeclaration() []byte {
	return fmt.Appendf(nil, "Bag-Version: %s\nTag-File-Character-Encoding: %s\n", b.version, b.encoding)
}

// renderedTagFiles returns the tag files whose content is derived from the
// in-memory model, keyed by bag-relative name. The fetch file only exists
// while the registry is non-empty. Tag manifests are excluded from their
// own scope.
func (b *Bag) renderedTagFiles() map[string][]byte {
	files := map[string][]byte{
		declarationName: b.renderDeclaration(),
		infoName:        b.info.serialize(),
	}
	for a, m := range b.payload {
		files[manifestPrefix+a.String()] = m.serialize()
	}
	if b.fetch.Len() > 0 {
		files[fetchName] = b.fetch.serialize()
	}
	return files
}

// refreshRenderedTagEntries recomputes the tag-manifest entries for all
// rendered tag files and drops entries for rendered names that no longer
// exist. Entries for user tag files are left alone.
func (b *Bag) refreshRenderedTagEntries() {
	rendered := b.renderedTagFiles()
	for _, tm := range b.tags {
		for name, content := range rendered {
			tm.set(name, digestBytes(content, []Algorithm{tm.algorithm})[tm.algorithm])
		}
		if b.fetch.Len() == 0 {
			if _, ok := tm.Digest(fetchName); ok {
				tm.Remove(fetchName)
			}
		}
	}
}
