package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsApplied(t *testing.T) {
	b, err := New(t.TempDir(),
		WithAlgorithms(SHA512, SHA256, SHA512),
		WithTagAlgorithms(MD5),
		WithVersion(0, 97),
		WithEncoding("ISO-8859-1"),
		WithInfo("Source-Organization", "Example Org"),
	)
	require.NoError(t, err)

	assert.Equal(t, []Algorithm{SHA256, SHA512}, b.PayloadAlgorithms(), "duplicates collapse")
	assert.Equal(t, []Algorithm{MD5}, b.TagAlgorithms())
	assert.Equal(t, "0.97", b.Version().String())
	assert.Equal(t, "ISO-8859-1", b.Encoding())
	assert.Equal(t, []string{"Example Org"}, b.Info().Get("Source-Organization"))
}

func TestTagAlgorithmsFollowPayloadByDefault(t *testing.T) {
	b, err := New(t.TempDir(), WithAlgorithms(MD5, SHA512))
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{MD5, SHA512}, b.TagAlgorithms())
}
