package bag

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Algorithm identifies a checksum algorithm usable in manifests.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	SHA256
	SHA512
)

// algorithmNames is the fixed mapping used in manifest file names.
var algorithmNames = map[Algorithm]string{
	MD5:    "md5",
	SHA1:   "sha1",
	SHA256: "sha256",
	SHA512: "sha512",
}

// String returns the on-disk name of the algorithm (e.g. "sha256").
func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// New returns a fresh hash state for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	}
	panic("bag: unknown algorithm " + a.String())
}

// ParseAlgorithm maps an on-disk name back to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for a, n := range algorithmNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown algorithm %q", ErrFormat, name)
}
