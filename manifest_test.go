package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestAddNeverOverwrites(t *testing.T) {
	m := NewManifest(SHA256)
	require.NoError(t, m.Add("data/a.txt", "aaaa"))

	err := m.Add("data/a.txt", "bbbb")
	require.ErrorIs(t, err, ErrAlreadyExists)

	d, ok := m.Digest("data/a.txt")
	require.True(t, ok)
	assert.Equal(t, "aaaa", d)
}

func TestManifestRecompute(t *testing.T) {
	m := NewManifest(SHA256)
	require.NoError(t, m.Add("data/a.txt", "aaaa"))
	require.NoError(t, m.Recompute("data/a.txt", "bbbb"))

	d, _ := m.Digest("data/a.txt")
	assert.Equal(t, "bbbb", d)

	require.ErrorIs(t, m.Recompute("data/missing", "cccc"), ErrNotFound)
}

func TestManifestRemove(t *testing.T) {
	m := NewManifest(SHA256)
	require.NoError(t, m.Add("data/a.txt", "aaaa"))
	require.NoError(t, m.Remove("data/a.txt"))
	require.ErrorIs(t, m.Remove("data/a.txt"), ErrNotFound)
	assert.Zero(t, m.Len())
}

func TestManifestSerializeSortedByPath(t *testing.T) {
	m := NewManifest(SHA256)
	require.NoError(t, m.Add("data/z.txt", "1111"))
	require.NoError(t, m.Add("data/a.txt", "2222"))

	want := "2222  data/a.txt\n1111  data/z.txt\n"
	assert.Equal(t, want, string(m.serialize()))
}

func TestManifestEntriesInsertionOrder(t *testing.T) {
	m := NewManifest(SHA256)
	require.NoError(t, m.Add("data/z.txt", "1111"))
	require.NoError(t, m.Add("data/a.txt", "2222"))

	var order []string
	for p := range m.Entries() {
		order = append(order, p)
	}
	assert.Equal(t, []string{"data/z.txt", "data/a.txt"}, order)
}

func TestParseManifest(t *testing.T) {
	data := []byte("ABCD  data/a.txt\n1234\tdata/b.txt\n\n5678 data/c.txt\n")
	m, err := parseManifest(SHA256, data)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	// digests normalize to lowercase
	d, _ := m.Digest("data/a.txt")
	assert.Equal(t, "abcd", d)
}

func TestParseManifestMalformed(t *testing.T) {
	_, err := parseManifest(SHA256, []byte("justonefield\n"))
	require.ErrorIs(t, err, ErrFormat)
}
