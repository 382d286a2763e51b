package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTwoSections(t *testing.T) {
	raw := []byte(`{
		"packages": [
			{"name": "foo/bar", "version": "1.0.0"},
			{"name": "acme/lib", "version": "2.3.1"}
		],
		"packages-dev": [
			{"name": "baz/qux", "version": "0.1.0"}
		]
	}`)

	reg := Parse(raw, zap.NewNop())
	require.Len(t, reg, 3)
	assert.Equal(t, Entry{Section: SectionDirect, Version: "1.0.0"}, reg["foo/bar"])
	assert.Equal(t, Entry{Section: SectionDirect, Version: "2.3.1"}, reg["acme/lib"])
	assert.Equal(t, Entry{Section: SectionDevelopment, Version: "0.1.0"}, reg["baz/qux"])
}

func TestParseMissingSectionsAreEmpty(t *testing.T) {
	reg := Parse([]byte(`{"packages": [{"name": "foo/bar", "version": "1.0"}]}`), zap.NewNop())
	require.Len(t, reg, 1)
	assert.Equal(t, SectionDirect, reg["foo/bar"].Section)

	reg = Parse([]byte(`{"content-hash": "abc"}`), zap.NewNop())
	assert.Empty(t, reg)
}

func TestParseMalformedYieldsEmptyRegistry(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		`{"packages": "not an array"}`,
		`{"packages": [{`,
	} {
		reg := Parse([]byte(raw), zap.NewNop())
		assert.Empty(t, reg, "input %q", raw)
	}
}

func TestParseDuplicateNamesLastWriteWins(t *testing.T) {
	raw := []byte(`{
		"packages": [
			{"name": "foo/bar", "version": "1.0.0"},
			{"name": "foo/bar", "version": "1.1.0"}
		]
	}`)
	reg := Parse(raw, zap.NewNop())
	require.Len(t, reg, 1)
	assert.Equal(t, "1.1.0", reg["foo/bar"].Version)
}

func TestParseIgnoresNamelessRecords(t *testing.T) {
	raw := []byte(`{"packages": [{"version": "1.0.0"}, {"name": "a/b", "version": "2.0"}]}`)
	reg := Parse(raw, zap.NewNop())
	require.Len(t, reg, 1)
	assert.Contains(t, reg, "a/b")
}
