package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lockpanel/internal/lockdiff"
	"lockpanel/internal/lockfile"
)

func classify(old, new map[string]lockfile.Entry) lockdiff.Result {
	or := make(lockfile.Registry, len(old))
	for k, v := range old {
		or[k] = v
	}
	nr := make(lockfile.Registry, len(new))
	for k, v := range new {
		nr[k] = v
	}
	return lockdiff.Classify(or, nr)
}

func TestBuildNoChangesPlaceholder(t *testing.T) {
	same := map[string]lockfile.Entry{
		"foo/bar": {Section: lockfile.SectionDirect, Version: "1.0"},
	}
	doc := Build(classify(same, same))
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, KindNoChanges, doc.Blocks[0].Kind)
	assert.Empty(t, doc.Blocks[0].Rows)
}

func TestBuildOmitsEmptyCategories(t *testing.T) {
	res := classify(
		map[string]lockfile.Entry{},
		map[string]lockfile.Entry{"baz/qux": {Section: lockfile.SectionDevelopment, Version: "0.1"}},
	)
	doc := Build(res)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, KindAdded, doc.Blocks[0].Kind)
	require.Len(t, doc.Blocks[0].Rows, 1)
	assert.Equal(t, []string{"baz/qux", "0.1", "development"}, doc.Blocks[0].Rows[0])
}

func TestBuildUpdatedShowsArrowOnlyOnChangedAxis(t *testing.T) {
	res := classify(
		map[string]lockfile.Entry{
			"bumped/pkg": {Section: lockfile.SectionDirect, Version: "1.0"},
			"moved/pkg":  {Section: lockfile.SectionDirect, Version: "3.3"},
		},
		map[string]lockfile.Entry{
			"bumped/pkg": {Section: lockfile.SectionDirect, Version: "2.0"},
			"moved/pkg":  {Section: lockfile.SectionDevelopment, Version: "3.3"},
		},
	)
	doc := Build(res)
	require.Len(t, doc.Blocks, 1)
	b := doc.Blocks[0]
	assert.Equal(t, KindUpdated, b.Kind)
	require.Len(t, b.Rows, 2)

	// Rows are sorted by name: bumped/pkg then moved/pkg.
	assert.Equal(t, []string{"bumped/pkg", "1.0 → 2.0", "direct"}, b.Rows[0])
	assert.Equal(t, []string{"moved/pkg", "3.3", "direct → development"}, b.Rows[1])
}

func TestHTMLIsDeterministicAndTagged(t *testing.T) {
	res := classify(
		map[string]lockfile.Entry{"gone/pkg": {Section: lockfile.SectionDirect, Version: "1.0"}},
		map[string]lockfile.Entry{"new/pkg": {Section: lockfile.SectionDirect, Version: "1.0"}},
	)
	doc := Build(res)

	first, err := doc.HTML()
	require.NoError(t, err)
	second, err := doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Contains(t, first, PanelClass)
	assert.Contains(t, first, "new/pkg")
	assert.Contains(t, first, "gone/pkg")
}

func TestHTMLEscapesPackageNames(t *testing.T) {
	res := classify(
		map[string]lockfile.Entry{},
		map[string]lockfile.Entry{`<script>alert(1)</script>`: {Section: lockfile.SectionDirect, Version: "1.0"}},
	)
	html, err := Build(res).HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestTextRendering(t *testing.T) {
	res := classify(
		map[string]lockfile.Entry{"foo/bar": {Section: lockfile.SectionDirect, Version: "1.0"}},
		map[string]lockfile.Entry{"foo/bar": {Section: lockfile.SectionDirect, Version: "2.0"}},
	)
	text := Build(res).Text()
	assert.True(t, strings.HasPrefix(text, "Lockfile changes"))
	assert.Contains(t, text, "Updated (1)")
	assert.Contains(t, text, "foo/bar  1.0 → 2.0  direct")
}
