package bag

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPayloadAlgorithm(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	saved := []byte("already on disk")
	staged := []byte("still in memory")

	b, err := New(dir)
	require.NoError(t, err)
	b, err = b.AddData("saved.txt", saved)
	require.NoError(t, err)
	b, err = b.Save(ctx)
	require.NoError(t, err)
	b, err = b.AddData("staged.txt", staged)
	require.NoError(t, err)

	b, err = b.AddPayloadAlgorithm(ctx, SHA512, false)
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{SHA256, SHA512}, b.PayloadAlgorithms())

	m, ok := b.PayloadManifest(SHA512)
	require.True(t, ok)
	got, _ := m.Digest("data/saved.txt")
	assert.Equal(t, sha512hex(saved), got)
	got, _ = m.Digest("data/staged.txt")
	assert.Equal(t, sha512hex(staged), got)

	// the new manifest is itself a tag file and is covered immediately
	tm, _ := b.TagManifest(SHA256)
	_, ok = tm.Digest("manifest-sha512")
	assert.True(t, ok)

	b, err = b.Save(ctx)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "manifest-sha512"))
	require.NoError(t, b.Verify(ctx))
}

func TestAddPayloadAlgorithmPresentIsNoop(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	nb, err := b.AddPayloadAlgorithm(context.Background(), SHA256, false)
	require.NoError(t, err)
	assert.Same(t, b, nb)
}

func TestAddPayloadAlgorithmCoversFetchEntries(t *testing.T) {
	ctx := context.Background()
	content := []byte("remote bytes")
	stub := &stubFetcher{content: map[string][]byte{"https://example.org/r": content}}

	b := newFetchBag(t, t.TempDir(), stub)
	b, err := b.AddFetch(ctx, "https://example.org/r", -1, "r.bin")
	require.NoError(t, err)

	b, err = b.AddPayloadAlgorithm(ctx, MD5, false)
	require.NoError(t, err)

	m, _ := b.PayloadManifest(MD5)
	got, ok := m.Digest("data/r.bin")
	require.True(t, ok)
	assert.Equal(t, digestBytes(content, []Algorithm{MD5})[MD5], got)
	assert.Equal(t, 2, stub.calls, "one retrieval per activation")
}

func TestRemovePayloadAlgorithmNotFound(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = b.RemovePayloadAlgorithm(MD5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddTagAlgorithm(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := New(dir)
	require.NoError(t, err)
	b, err = b.AddData("a.txt", []byte("payload"))
	require.NoError(t, err)
	b, err = b.AddTagData("meta/notes.txt", []byte("notes"))
	require.NoError(t, err)

	b, err = b.AddTagAlgorithm(ctx, MD5, false)
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{MD5, SHA256}, b.TagAlgorithms())

	m, ok := b.TagManifest(MD5)
	require.True(t, ok)
	for _, name := range []string{declarationName, infoName, "manifest-sha256", "meta/notes.txt"} {
		_, ok := m.Digest(name)
		assert.True(t, ok, name)
	}
	_, ok = m.Digest("tagmanifest-sha256")
	assert.False(t, ok, "tag manifests never list tag manifests")

	b, err = b.Save(ctx)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "tagmanifest-md5"))
	require.NoError(t, b.Verify(ctx))
}

func TestRemoveTagAlgorithm(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := New(dir, WithTagAlgorithms(MD5, SHA256))
	require.NoError(t, err)
	b, err = b.Save(ctx)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "tagmanifest-md5"))

	b, err = b.RemoveTagAlgorithm(MD5)
	require.NoError(t, err)
	b, err = b.Save(ctx)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "tagmanifest-md5"))
	require.FileExists(t, filepath.Join(dir, "tagmanifest-sha256"))

	_, err = b.RemoveTagAlgorithm(MD5)
	require.ErrorIs(t, err, ErrNotFound)
}
