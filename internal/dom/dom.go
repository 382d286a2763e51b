// Package dom is the page boundary: a small element-tree abstraction the
// anchor locator and panel inserter work against. Two implementations exist:
// an in-memory tree parsed from HTML (this package) used by tests and the
// offline CLI path, and a live Chrome page driver (internal/browser).
package dom

import "context"

// Element is one node of the page's element tree.
type Element interface {
	// Tag returns the lower-cased tag name.
	Tag() string
	// Attrs returns the element's attributes.
	Attrs() map[string]string
	// Text returns the concatenated text content of the subtree.
	Text() string
	// Matches reports whether the element matches the selector.
	Matches(selector string) bool
	// Closest returns the nearest self-or-ancestor matching the selector.
	Closest(selector string) (Element, bool)
	// Select returns the first descendant matching the selector.
	Select(selector string) (Element, bool)
	// PrependHTML inserts the fragment as the element's first child.
	PrependHTML(fragment string) error
	// AppendHTML inserts the fragment as the element's last child.
	AppendHTML(fragment string) error
	// RemoveMatching removes all descendants matching the selector and
	// returns how many were removed.
	RemoveMatching(selector string) int
}

// Document is the read/write surface of one live page.
type Document interface {
	// Root returns the page's root content element (the body). The second
	// return is false only on a pathological page with no body at all.
	Root() (Element, bool)
	// Select returns the first element matching the selector.
	Select(selector string) (Element, bool)
	// SelectAll returns every element matching the selector, in document
	// order.
	SelectAll(selector string) []Element
	// ElementsContainingText returns the deepest elements whose own text
	// contains the substring, in document order.
	ElementsContainingText(substr string) []Element
}

// MutationSource delivers coalescible change notifications for a document.
// The channel carries no payload: a receive means "something mutated since
// you last looked". Implementations drop notifications when the receiver is
// slow rather than buffering unboundedly.
type MutationSource interface {
	Mutations(ctx context.Context) (<-chan struct{}, error)
}
