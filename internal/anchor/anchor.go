// Package anchor locates the insertion point for the diff panel among
// unstable, vendor-controlled page markup. A single precise selector would
// break on every host redesign, so location is an ordered cascade from the
// most specific strategy to the page root: the earliest strategy that matches
// wins because it is the most semantically precise, and later strategies are
// pure fallbacks, never merged with earlier results.
package anchor

import (
	"strings"

	"go.uber.org/zap"

	"lockpanel/internal/dom"
)

// Strategy tags which rung of the cascade produced a candidate.
type Strategy int

const (
	// StrategyRow matched the lockfile's own row and ascended to its
	// container.
	StrategyRow Strategy = iota
	// StrategyTextScan found the filename by scanning element text.
	StrategyTextScan
	// StrategyContainer took the first plausible file container.
	StrategyContainer
	// StrategyRegion took the first coarse comparison-area element.
	StrategyRegion
	// StrategyRoot fell back to the page's root content element.
	StrategyRoot
)

func (s Strategy) String() string {
	switch s {
	case StrategyRow:
		return "row"
	case StrategyTextScan:
		return "text-scan"
	case StrategyContainer:
		return "container"
	case StrategyRegion:
		return "region"
	case StrategyRoot:
		return "root"
	}
	return "unknown"
}

// Candidate is a located insertion point. Transient: its lifetime is one
// locate-and-insert cycle, it is never persisted.
type Candidate struct {
	Element  dom.Element
	Strategy Strategy
}

// Locator inspects a page for the best available insertion point. Locate is
// strictly read-only.
type Locator struct {
	store    *SelectorStore
	filename string
	log      *zap.Logger
}

// NewLocator builds a locator for the given lockfile name.
func NewLocator(store *SelectorStore, filename string, log *zap.Logger) *Locator {
	return &Locator{store: store, filename: filename, log: log}
}

// ContentSelectors returns the inner diff-content selector list the panel
// inserter prefers over the raw container.
func (l *Locator) ContentSelectors() []string {
	return l.store.Current().Content
}

// Locate walks the strategy cascade and returns the first candidate found.
// The second return is false only when the page has no root content element
// at all.
func (l *Locator) Locate(doc dom.Document) (*Candidate, bool) {
	sel := l.store.Current()

	if el, ok := l.locateByRow(doc, sel); ok {
		return &Candidate{Element: el, Strategy: StrategyRow}, true
	}
	l.log.Debug("row strategy found nothing, falling back to text scan",
		zap.String("filename", l.filename))

	if el, ok := l.locateByText(doc, sel); ok {
		return &Candidate{Element: el, Strategy: StrategyTextScan}, true
	}
	l.log.Debug("text scan found nothing, falling back to first container")

	if el, ok := firstMatch(doc, sel.Containers); ok {
		return &Candidate{Element: el, Strategy: StrategyContainer}, true
	}
	l.log.Debug("no container matched, falling back to page region")

	if el, ok := firstMatch(doc, sel.Regions); ok {
		return &Candidate{Element: el, Strategy: StrategyRegion}, true
	}
	l.log.Debug("no region matched, falling back to page root")

	if root, ok := doc.Root(); ok {
		return &Candidate{Element: root, Strategy: StrategyRoot}, true
	}
	return nil, false
}

// locateByRow queries the row selector list, keeps only matches whose text or
// attribute values actually name the lockfile, and ascends each survivor to
// the nearest known container.
func (l *Locator) locateByRow(doc dom.Document, sel Selectors) (dom.Element, bool) {
	for _, rowSel := range sel.Rows {
		for _, el := range doc.SelectAll(rowSel) {
			if !l.namesLockfile(el) {
				continue
			}
			if container, ok := ascend(el, sel.Containers); ok {
				return container, true
			}
		}
	}
	return nil, false
}

// locateByText scans every element for literal text containing the lockfile
// name and ascends via the same container list.
func (l *Locator) locateByText(doc dom.Document, sel Selectors) (dom.Element, bool) {
	for _, el := range doc.ElementsContainingText(l.filename) {
		if container, ok := ascend(el, sel.Containers); ok {
			return container, true
		}
	}
	return nil, false
}

// namesLockfile reports whether the element's text or any attribute value
// mentions the lockfile name.
func (l *Locator) namesLockfile(el dom.Element) bool {
	if strings.Contains(el.Text(), l.filename) {
		return true
	}
	for _, v := range el.Attrs() {
		if strings.Contains(v, l.filename) {
			return true
		}
	}
	return false
}

// ascend walks the container selector list, returning the first
// closest-ancestor hit.
func ascend(el dom.Element, containers []string) (dom.Element, bool) {
	for _, sel := range containers {
		if container, ok := el.Closest(sel); ok {
			return container, true
		}
	}
	return nil, false
}

func firstMatch(doc dom.Document, selectors []string) (dom.Element, bool) {
	for _, sel := range selectors {
		if el, ok := doc.Select(sel); ok {
			return el, true
		}
	}
	return nil, false
}
