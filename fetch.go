package bag

import (
	"context"
	"fmt"
)

// AddFetch registers remote payload content at dest, relative to the
// payload directory, and returns the new bag. The source is retrieved
// once to compute a digest for every active payload algorithm; the bytes
// are then discarded, only (url, size, destination) is kept. Pass size -1
// when the expected length is unknown; a non-negative size is enforced
// against the transfer.
//
// A destination may not simultaneously be a real payload file and a fetch
// reference.
func (b *Bag) AddFetch(ctx context.Context, rawURL string, size int64, dest string) (*Bag, error) {
	key, err := payloadKey(dest)
	if err != nil {
		return nil, err
	}
	if err := b.checkCollision(key); err != nil {
		return nil, err
	}
	if _, ok := b.fetch.ByURL(rawURL); ok {
		return nil, fmt.Errorf("%w: fetch url %s", ErrAlreadyExists, rawURL)
	}

	sums, n, err := b.materialize(ctx, rawURL, b.PayloadAlgorithms())
	if err != nil {
		return nil, err
	}
	if size >= 0 && n != size {
		return nil, fmt.Errorf("%w: fetch %s: got %d bytes, expected %d", ErrInvariant, rawURL, n, size)
	}

	nb := b.clone()
	if err := nb.fetch.add(FetchEntry{URL: rawURL, Size: n, Path: key}); err != nil {
		return nil, err
	}
	for a, m := range nb.payload {
		m.set(key, sums[a])
	}
	nb.refreshRenderedTagEntries()
	return nb, nil
}

// RemoveFetchByDestination drops the fetch entry whose destination is dest,
// relative to the payload directory.
func (b *Bag) RemoveFetchByDestination(dest string) (*Bag, error) {
	key, err := payloadKey(dest)
	if err != nil {
		return nil, err
	}
	if _, ok := b.fetch.ByPath(key); !ok {
		return nil, fmt.Errorf("%w: fetch destination %s", ErrNotFound, dest)
	}
	return b.dropFetch(key)
}

// RemoveFetchByURL drops the fetch entry with the given source URL.
func (b *Bag) RemoveFetchByURL(rawURL string) (*Bag, error) {
	e, ok := b.fetch.ByURL(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: fetch url %s", ErrNotFound, rawURL)
	}
	return b.dropFetch(e.Path)
}

// RemoveFetch drops the given entry. The entry must match a registered one
// exactly; like the other removal variants it fails with ErrNotFound
// otherwise.
func (b *Bag) RemoveFetch(e FetchEntry) (*Bag, error) {
	got, ok := b.fetch.ByPath(e.Path)
	if !ok || got != e {
		return nil, fmt.Errorf("%w: fetch entry %s", ErrNotFound, e.Path)
	}
	return b.dropFetch(e.Path)
}

func (b *Bag) dropFetch(key string) (*Bag, error) {
	nb := b.clone()
	if _, err := nb.fetch.removeByPath(key); err != nil {
		return nil, err
	}
	for _, m := range nb.payload {
		if _, ok := m.Digest(key); ok {
			m.Remove(key)
		}
	}
	nb.refreshRenderedTagEntries()
	return nb, nil
}

// materialize retrieves a fetch source and digests the stream under the
// given algorithms, returning the digests and the transferred byte count.
// The content itself is never kept.
func (b *Bag) materialize(ctx context.Context, rawURL string, algorithms []Algorithm) (map[Algorithm]string, int64, error) {
	rc, _, err := b.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer rc.Close()

	sums, n, err := digestReader(rc, algorithms)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return sums, n, nil
}
