package bag

import (
	"bufio"
	"bytes"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// FetchEntry references payload content held at a remote source instead of
// locally. Size is the expected byte length, or -1 when unknown. Path is
// the bag-relative destination inside the payload directory.
type FetchEntry struct {
	URL  string
	Size int64
	Path string
}

// FetchSet is the registry of fetch entries. Entries are keyed by
// destination path; a URL may appear at most once as well. The set holds
// only metadata, never file content.
type FetchSet struct {
	order  []string
	byPath map[string]FetchEntry
}

// NewFetchSet creates an empty registry.
func NewFetchSet() *FetchSet {
	return &FetchSet{byPath: make(map[string]FetchEntry)}
}

// Len returns the number of entries.
func (f *FetchSet) Len() int { return len(f.byPath) }

// ByPath looks up the entry with the given destination path.
func (f *FetchSet) ByPath(path string) (FetchEntry, bool) {
	e, ok := f.byPath[path]
	return e, ok
}

// ByURL looks up the entry with the given source URL.
func (f *FetchSet) ByURL(url string) (FetchEntry, bool) {
	for _, e := range f.byPath {
		if e.URL == url {
			return e, true
		}
	}
	return FetchEntry{}, false
}

// Entries iterates entries in insertion order. The sequence is restartable.
func (f *FetchSet) Entries() iter.Seq[FetchEntry] {
	return func(yield func(FetchEntry) bool) {
		for _, p := range f.order {
			if !yield(f.byPath[p]) {
				return
			}
		}
	}
}

func (f *FetchSet) add(e FetchEntry) error {
	if _, ok := f.byPath[e.Path]; ok {
		return fmt.Errorf("%w: fetch destination %s", ErrAlreadyExists, e.Path)
	}
	if _, ok := f.ByURL(e.URL); ok {
		return fmt.Errorf("%w: fetch url %s", ErrAlreadyExists, e.URL)
	}
	f.order = append(f.order, e.Path)
	f.byPath[e.Path] = e
	return nil
}

func (f *FetchSet) removeByPath(path string) (FetchEntry, error) {
	e, ok := f.byPath[path]
	if !ok {
		return FetchEntry{}, fmt.Errorf("%w: fetch destination %s", ErrNotFound, path)
	}
	delete(f.byPath, path)
	f.order = slices.DeleteFunc(f.order, func(p string) bool { return p == path })
	return e, nil
}

func (f *FetchSet) clone() *FetchSet {
	return &FetchSet{
		order:  slices.Clone(f.order),
		byPath: maps.Clone(f.byPath),
	}
}

// serialize renders the fetch file content: "url size path" per entry in
// insertion order. An unknown size is written as "-".
func (f *FetchSet) serialize() []byte {
	var buf bytes.Buffer
	for e := range f.Entries() {
		size := "-"
		if e.Size >= 0 {
			size = strconv.FormatInt(e.Size, 10)
		}
		fmt.Fprintf(&buf, "%s %s %s\n", e.URL, size, e.Path)
	}
	return buf.Bytes()
}

// parseFetch reads fetch file content produced by serialize.
func parseFetch(data []byte) (*FetchSet, error) {
	set := NewFetchSet()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: fetch line %q", ErrFormat, line)
		}
		size := int64(-1)
		if fields[1] != "-" {
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: fetch size %q", ErrFormat, fields[1])
			}
			size = n
		}
		if err := set.add(FetchEntry{URL: fields[0], Size: size, Path: fields[2]}); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
