package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSetSerializeRoundTrip(t *testing.T) {
	set := NewFetchSet()
	require.NoError(t, set.add(FetchEntry{URL: "https://example.org/a", Size: 42, Path: "data/a"}))
	require.NoError(t, set.add(FetchEntry{URL: "https://example.org/b", Size: -1, Path: "data/b"}))

	want := "https://example.org/a 42 data/a\nhttps://example.org/b - data/b\n"
	assert.Equal(t, want, string(set.serialize()))

	parsed, err := parseFetch(set.serialize())
	require.NoError(t, err)
	require.Equal(t, 2, parsed.Len())

	b, ok := parsed.ByPath("data/b")
	require.True(t, ok)
	assert.Equal(t, int64(-1), b.Size)
}

func TestFetchSetRejectsDuplicates(t *testing.T) {
	set := NewFetchSet()
	require.NoError(t, set.add(FetchEntry{URL: "https://example.org/a", Size: -1, Path: "data/a"}))

	err := set.add(FetchEntry{URL: "https://example.org/other", Size: -1, Path: "data/a"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	err = set.add(FetchEntry{URL: "https://example.org/a", Size: -1, Path: "data/elsewhere"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestParseFetchMalformed(t *testing.T) {
	_, err := parseFetch([]byte("https://example.org/a data/a\n"))
	require.ErrorIs(t, err, ErrFormat)

	_, err = parseFetch([]byte("https://example.org/a -7 data/a\n"))
	require.ErrorIs(t, err, ErrFormat)
}
