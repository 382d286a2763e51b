package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lockpanel/internal/dom"
)

func locatorFor(t *testing.T, html string) (*Locator, *dom.MemoryDocument) {
	t.Helper()
	doc, err := dom.Parse(html)
	require.NoError(t, err)
	store := NewSelectorStore(DefaultSelectors(), zap.NewNop())
	return NewLocator(store, "composer.lock", zap.NewNop()), doc
}

func TestLocateByRowAscendsToContainer(t *testing.T) {
	loc, doc := locatorFor(t, `<html><body><main>
		<div class="file" data-details-container-group="file">
			<div class="file-header" data-path="composer.lock">composer.lock</div>
			<div class="js-file-content">diff</div>
		</div>
		<div class="file">
			<div class="file-header" data-path="other.txt">other.txt</div>
		</div>
	</main></body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	assert.Equal(t, StrategyRow, cand.Strategy)
	assert.Equal(t, "file", cand.Element.Attrs()["data-details-container-group"])
}

func TestLocateRowSkipsUnrelatedFiles(t *testing.T) {
	// A row selector matches, but none of the hits name the lockfile, so the
	// row strategy must not fire for an arbitrary file.
	loc, doc := locatorFor(t, `<html><body><main>
		<div class="file">
			<div class="file-header" data-path="README.md">README.md</div>
		</div>
	</main></body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	// Falls through row and text scan to the first container.
	assert.Equal(t, StrategyContainer, cand.Strategy)
}

func TestLocateByTextScan(t *testing.T) {
	// No attribute carries the name, only literal text deep in the tree.
	loc, doc := locatorFor(t, `<html><body><main>
		<div class="file">
			<span><a>composer.lock</a></span>
		</div>
	</main></body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	assert.Equal(t, StrategyTextScan, cand.Strategy)
	assert.Equal(t, "div", cand.Element.Tag())
}

func TestLocateFallsBackToRegion(t *testing.T) {
	loc, doc := locatorFor(t, `<html><body>
		<main><div id="files">nothing file-shaped here</div></main>
	</body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	assert.Equal(t, StrategyRegion, cand.Strategy)
	assert.Equal(t, "files", cand.Element.Attrs()["id"])
}

func TestLocateFallsBackToRoot(t *testing.T) {
	loc, doc := locatorFor(t, `<html><body><p>bare page</p></body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	assert.Equal(t, StrategyRoot, cand.Strategy)
}

func TestLocateEarlierStrategyWins(t *testing.T) {
	// Row, container and region candidates all exist; the row one must win.
	loc, doc := locatorFor(t, `<html><body><main>
		<div id="files">
			<div class="file" data-details-container-group="file">
				<div class="file-header" data-path="composer.lock">composer.lock</div>
			</div>
		</div>
	</main></body></html>`)

	cand, ok := loc.Locate(doc)
	require.True(t, ok)
	assert.Equal(t, StrategyRow, cand.Strategy)
}

func TestLocateIsReadOnly(t *testing.T) {
	loc, doc := locatorFor(t, `<html><body><main>
		<div class="file">
			<div class="file-header" data-path="composer.lock">composer.lock</div>
		</div>
	</main></body></html>`)

	before, err := doc.HTML()
	require.NoError(t, err)
	_, ok := loc.Locate(doc)
	require.True(t, ok)
	after, err := doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "row", StrategyRow.String())
	assert.Equal(t, "text-scan", StrategyTextScan.String())
	assert.Equal(t, "container", StrategyContainer.String())
	assert.Equal(t, "region", StrategyRegion.String())
	assert.Equal(t, "root", StrategyRoot.String())
	assert.Equal(t, "unknown", Strategy(99).String())
}
