package bag

import (
	"slices"

	"github.com/aweris/bag/internal/fetch"
)

// Fetcher retrieves remote fetch sources.
// Re-exported from internal/fetch for convenience.
type Fetcher = fetch.Fetcher

// Options configures a bag constructor.
type Options struct {
	Algorithms    []Algorithm
	TagAlgorithms []Algorithm // defaults to Algorithms
	Version       Version
	Encoding      string
	Info          []infoPair
	Fetcher       Fetcher
	Concurrency   int
}

type infoPair struct {
	key   string
	value string
}

// Option is a functional option for the bag constructors.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Algorithms:  []Algorithm{SHA256},
		Version:     DefaultVersion,
		Encoding:    DefaultEncoding,
		Fetcher:     fetch.Default(),
		Concurrency: DefaultConcurrency,
	}
}

// WithAlgorithms sets the payload checksum algorithms.
func WithAlgorithms(algorithms ...Algorithm) Option {
	return func(o *Options) {
		if len(algorithms) > 0 {
			o.Algorithms = dedupe(algorithms)
		}
	}
}

// WithTagAlgorithms sets the tag checksum algorithms independently of the
// payload ones.
func WithTagAlgorithms(algorithms ...Algorithm) Option {
	return func(o *Options) {
		if len(algorithms) > 0 {
			o.TagAlgorithms = dedupe(algorithms)
		}
	}
}

// WithVersion sets the format version written to the declaration.
func WithVersion(major, minor int) Option {
	return func(o *Options) { o.Version = Version{Major: major, Minor: minor} }
}

// WithEncoding sets the declared tag file text encoding.
func WithEncoding(encoding string) Option {
	return func(o *Options) {
		if encoding != "" {
			o.Encoding = encoding
		}
	}
}

// WithInfo appends a metadata value for the new bag.
func WithInfo(key, value string) Option {
	return func(o *Options) { o.Info = append(o.Info, infoPair{key: key, value: value}) }
}

// WithFetcher sets the retriever used to materialize fetch entries.
func WithFetcher(f Fetcher) Option {
	return func(o *Options) {
		if f != nil {
			o.Fetcher = f
		}
	}
}

// WithConcurrency bounds parallel file digesting.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

func dedupe(algorithms []Algorithm) []Algorithm {
	out := slices.Clone(algorithms)
	slices.Sort(out)
	return slices.Compact(out)
}
