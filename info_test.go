package bag

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoMultiValue(t *testing.T) {
	i := NewInfo()
	i.Add("Contact-Name", "A. Archivist")
	i.Add("Contact-Name", "B. Curator")

	assert.Equal(t, []string{"A. Archivist", "B. Curator"}, i.Get("Contact-Name"))
	assert.Equal(t, 1, i.Len())
}

func TestInfoSetReplacesAllValues(t *testing.T) {
	i := NewInfo()
	i.Add("Contact-Name", "A. Archivist")
	i.Add("Contact-Name", "B. Curator")
	i.Set("Contact-Name", "C. Librarian")

	assert.Equal(t, []string{"C. Librarian"}, i.Get("Contact-Name"))
}

func TestInfoKeyOrderPreserved(t *testing.T) {
	i := NewInfo()
	i.Add("Z-Last", "1")
	i.Add("A-First", "2")
	i.Add("Z-Last", "3") // merges into the existing key

	assert.Equal(t, []string{"Z-Last", "A-First"}, i.Keys())
}

func TestInfoRemoveAbsentIsNoop(t *testing.T) {
	i := NewInfo()
	i.Remove("Missing")
	assert.Zero(t, i.Len())
}

func TestInfoBaggingDate(t *testing.T) {
	i := NewInfo()

	_, err := i.BaggingDate()
	require.ErrorIs(t, err, ErrNotFound)

	i.SetBaggingDate(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, []string{"2024-03-15"}, i.Get(TagBaggingDate))

	got, err := i.BaggingDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	i.Set(TagBaggingDate, "not-a-date")
	_, err = i.BaggingDate()
	require.ErrorIs(t, err, ErrFormat)
}

func TestInfoIsVersionOf(t *testing.T) {
	i := NewInfo()

	u, err := url.Parse("https://example.org/bags/v1")
	require.NoError(t, err)
	i.SetIsVersionOf(u)

	got, err := i.IsVersionOf()
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/bags/v1", got.String())

	i.Set(TagIsVersionOf, "::::")
	_, err = i.IsVersionOf()
	require.ErrorIs(t, err, ErrFormat)
}

func TestInfoTypedTagRejectsMultipleValues(t *testing.T) {
	i := NewInfo()
	i.Add(TagBaggingDate, "2024-01-01")
	i.Add(TagBaggingDate, "2024-01-02")

	_, err := i.BaggingDate()
	require.ErrorIs(t, err, ErrFormat)
}

func TestInfoSerializeRoundTrip(t *testing.T) {
	i := NewInfo()
	i.Add("Source-Organization", "Example Org")
	i.Add("Contact-Name", "A. Archivist")
	i.Add("Contact-Name", "B. Curator")

	parsed, err := parseInfo(i.serialize())
	require.NoError(t, err)
	assert.Equal(t, i.Keys(), parsed.Keys())
	assert.Equal(t, i.Get("Contact-Name"), parsed.Get("Contact-Name"))
}

func TestParseInfoContinuationLines(t *testing.T) {
	data := []byte("External-Description: a very long\n  description across lines\n")
	i, err := parseInfo(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a very long description across lines"}, i.Get("External-Description"))
}

func TestParseInfoMalformed(t *testing.T) {
	_, err := parseInfo([]byte("  continuation without a tag\n"))
	require.ErrorIs(t, err, ErrFormat)

	_, err = parseInfo([]byte("no separator here\n"))
	require.ErrorIs(t, err, ErrFormat)
}
