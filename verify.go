package bag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
)

// Verify recomputes the digest of every manifest entry against the files
// on disk and reports all mismatches and missing files as one joined
// error. Fetch destinations have no local bytes and are skipped. This is
// checksum verification only; structural linting of the format is a job
// for an external validator.
func (b *Bag) Verify(ctx context.Context) error {
	var problems []error

	problems = append(problems, b.verifyScope(ctx, payloadScope)...)
	problems = append(problems, b.verifyScope(ctx, tagScope)...)

	return errors.Join(problems...)
}

func (b *Bag) verifyScope(ctx context.Context, s scope) []error {
	tables := b.tables(s)
	if len(tables) == 0 {
		return nil
	}

	// Tables written by this library share one key set, but Read accepts
	// foreign bags whose tables diverge. Check the union so an entry
	// present in only some tables is still verified.
	keys := make(map[string]struct{})
	for _, m := range tables {
		for key := range m.Entries() {
			keys[key] = struct{}{}
		}
	}

	files := make(map[string]string)
	var problems []error
	for _, key := range slices.Sorted(maps.Keys(keys)) {
		if s == payloadScope {
			if _, ok := b.fetch.ByPath(key); ok {
				continue
			}
		}
		if _, err := os.Stat(b.abs(key)); err != nil {
			problems = append(problems, fmt.Errorf("%w: %s", ErrNotFound, key))
			continue
		}
		files[key] = b.abs(key)
	}

	sums, err := digestPaths(ctx, files, b.algorithms(s), b.jobs)
	if err != nil {
		return append(problems, err)
	}

	for _, m := range tables {
		for key, want := range m.Entries() {
			got, ok := sums[key]
			if !ok {
				continue // missing or fetch, reported above
			}
			if got[m.algorithm] != want {
				problems = append(problems,
					fmt.Errorf("%s: %s digest mismatch: manifest %s, file %s",
						key, m.algorithm, want, got[m.algorithm]))
			}
		}
	}
	return problems
}
