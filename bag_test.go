package bag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, b.Version())
	assert.Equal(t, DefaultEncoding, b.Encoding())
	assert.Equal(t, []Algorithm{SHA256}, b.PayloadAlgorithms())
	assert.Equal(t, []Algorithm{SHA256}, b.TagAlgorithms())
}

func TestNewWritesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewTagManifestCoversRenderedFiles(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	tm, ok := b.TagManifest(SHA256)
	require.True(t, ok)
	for _, name := range []string{declarationName, infoName, manifestPrefix + "sha256"} {
		_, ok := tm.Digest(name)
		assert.True(t, ok, name)
	}
}

func TestAddDataImmutability(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	nb, err := b.AddData("a.txt", []byte("hello"))
	require.NoError(t, err)
	require.NotSame(t, b, nb)

	m, _ := b.PayloadManifest(SHA256)
	assert.Zero(t, m.Len(), "original bag must be untouched")

	nm, _ := nb.PayloadManifest(SHA256)
	assert.Equal(t, 1, nm.Len())
	_, ok := nm.Digest("data/a.txt")
	assert.True(t, ok)
}

func TestAddDataCollision(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	b, err = b.AddData("a.txt", []byte("one"))
	require.NoError(t, err)

	_, err = b.AddData("a.txt", []byte("two"))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAddDataFileShadowsDirectory(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	b, err = b.AddData("sub/a.txt", []byte("one"))
	require.NoError(t, err)

	// "sub" can no longer become a file, a tracked file lives below it
	_, err = b.AddData("sub", []byte("two"))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAddDataOutOfScope(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	for _, dest := range []string{"../escape.txt", "/abs.txt", "..", "a/../../b"} {
		_, err := b.AddData(dest, []byte("x"))
		assert.ErrorIs(t, err, ErrOutOfScope, dest)
	}
}

func TestAddTagDataProtectedNames(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	for _, dest := range []string{declarationName, infoName, fetchName, "manifest-sha256", "tagmanifest-md5"} {
		_, err := b.AddTagData(dest, []byte("x"))
		assert.ErrorIs(t, err, ErrProtectedPath, dest)
	}

	// same names are fine inside a subdirectory
	_, err = b.AddTagData("meta/bag-info", []byte("x"))
	require.NoError(t, err)
}

func TestAddTagDataRejectsPayloadTree(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = b.AddTagData("data/sneaky.txt", []byte("x"))
	require.ErrorIs(t, err, ErrOutOfScope)
}

func TestRemovePayloadFile(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	b, err = b.AddData("a.txt", []byte("hello"))
	require.NoError(t, err)

	nb, err := b.RemovePayloadFile("a.txt")
	require.NoError(t, err)

	m, _ := nb.PayloadManifest(SHA256)
	assert.Zero(t, m.Len())

	_, err = nb.RemovePayloadFile("a.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemovePayloadFileDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data", "sub"), 0755))

	b, err := New(dir)
	require.NoError(t, err)

	_, err = b.RemovePayloadFile("sub")
	require.ErrorIs(t, err, ErrIsDirectory)
}

func TestRemoveThenReAdd(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	content := []byte("same bytes")
	b, err = b.AddData("a.txt", content)
	require.NoError(t, err)
	m, _ := b.PayloadManifest(SHA256)
	want, _ := m.Digest("data/a.txt")

	b, err = b.RemovePayloadFile("a.txt")
	require.NoError(t, err)
	b, err = b.AddData("a.txt", content)
	require.NoError(t, err)

	m, _ = b.PayloadManifest(SHA256)
	got, _ := m.Digest("data/a.txt")
	assert.Equal(t, want, got)
}

func TestInfoMutationsReturnNewBag(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	nb := b.AddInfo("Source-Organization", "Example Org")
	assert.Empty(t, b.Info().Get("Source-Organization"))
	assert.Equal(t, []string{"Example Org"}, nb.Info().Get("Source-Organization"))

	nb = nb.SetInfo("Source-Organization", "Other Org")
	assert.Equal(t, []string{"Other Org"}, nb.Info().Get("Source-Organization"))

	nb = nb.RemoveInfo("Source-Organization")
	assert.Empty(t, nb.Info().Get("Source-Organization"))
}

func TestAddFileDirectoryAtomicity(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), []byte("1"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "two.txt"), []byte("2"), 0644))

	b, err := New(t.TempDir())
	require.NoError(t, err)

	// plant a collision with one of the incoming destinations
	b, err = b.AddData("docs/nested/two.txt", []byte("existing"))
	require.NoError(t, err)

	_, err = b.AddFile(context.Background(), "docs", src)
	require.ErrorIs(t, err, ErrAlreadyExists)

	// nothing else from the directory leaked in
	m, _ := b.PayloadManifest(SHA256)
	assert.Equal(t, 1, m.Len())
}

func TestAddFileDirectoryRecursive(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), []byte("1"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "two.txt"), []byte("2"), 0644))

	b, err := New(t.TempDir())
	require.NoError(t, err)

	b, err = b.AddFile(context.Background(), "docs", src)
	require.NoError(t, err)

	m, _ := b.PayloadManifest(SHA256)
	assert.Equal(t, []string{"data/docs/nested/two.txt", "data/docs/one.txt"}, m.Paths())
}
