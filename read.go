package bag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	declVersionTag  = "Bag-Version"
	declEncodingTag = "Tag-File-Character-Encoding"
)

// Read parses an on-disk bag directory into a model. No checksums are
// verified while reading; call Verify for that. Options only configure
// collaborators (fetcher, concurrency) — version, encoding, algorithms,
// and metadata all come from the files.
func Read(baseDir string, opts ...Option) (*Bag, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	b := &Bag{
		baseDir:  filepath.Clean(baseDir),
		encoding: DefaultEncoding,
		info:     NewInfo(),
		payload:  make(map[Algorithm]*Manifest),
		tags:     make(map[Algorithm]*Manifest),
		fetch:    NewFetchSet(),
		staged:   make(map[string]stagedFile),
		removed:  make(map[string]struct{}),
		fetcher:  o.Fetcher,
		jobs:     o.Concurrency,
	}

	if err := b.readDeclaration(); err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(b.abs(infoName)); err == nil {
		info, err := parseInfo(data)
		if err != nil {
			return nil, err
		}
		b.info = info
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", infoName, err)
	}

	if err := b.readManifests(); err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(b.abs(fetchName)); err == nil {
		set, err := parseFetch(data)
		if err != nil {
			return nil, err
		}
		b.fetch = set
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", fetchName, err)
	}

	return b, nil
}

func (b *Bag) readDeclaration() error {
	data, err := os.ReadFile(b.abs(declarationName))
	if err != nil {
		return fmt.Errorf("read %s: %w", declarationName, err)
	}
	decl, err := parseInfo(data)
	if err != nil {
		return err
	}

	versions := decl.Get(declVersionTag)
	if len(versions) != 1 {
		return fmt.Errorf("%w: %s has no %s", ErrFormat, declarationName, declVersionTag)
	}
	b.version, err = parseVersion(versions[0])
	if err != nil {
		return err
	}

	if encodings := decl.Get(declEncodingTag); len(encodings) == 1 && encodings[0] != "" {
		b.encoding = encodings[0]
	}
	return nil
}

func (b *Bag) readManifests() error {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", b.baseDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var tag bool
		var algoName string
		switch {
		case strings.HasPrefix(name, tagManifestPrefix):
			tag = true
			algoName = strings.TrimPrefix(name, tagManifestPrefix)
		case strings.HasPrefix(name, manifestPrefix):
			algoName = strings.TrimPrefix(name, manifestPrefix)
		default:
			continue
		}

		a, err := ParseAlgorithm(algoName)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		data, err := os.ReadFile(filepath.Join(b.baseDir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		m, err := parseManifest(a, data)
		if err != nil {
			return err
		}
		if tag {
			b.tags[a] = m
		} else {
			b.payload[a] = m
		}
	}
	return nil
}
