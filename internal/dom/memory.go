package dom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MemoryDocument is an in-process element tree parsed from HTML. It backs
// the offline CLI path and every test that would otherwise need a browser.
type MemoryDocument struct {
	mu   sync.Mutex
	root *html.Node // document node
	subs []chan struct{}
}

// Parse builds a MemoryDocument from raw HTML.
func Parse(raw string) (*MemoryDocument, error) {
	node, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &MemoryDocument{root: node}, nil
}

// Root returns the body element.
func (d *MemoryDocument) Root() (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	body := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if body == nil {
		return nil, false
	}
	return &memElement{doc: d, node: body}, true
}

// Select returns the first element matching the selector.
func (d *MemoryDocument) Select(selector string) (Element, bool) {
	all := d.SelectAll(selector)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// SelectAll returns every matching element in document order.
func (d *MemoryDocument) SelectAll(selector string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectAllLocked(d.root, selector)
}

func (d *MemoryDocument) selectAllLocked(scope *html.Node, selector string) []Element {
	groups := parseSelector(selector)
	var out []Element
	walk(scope, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if matchesGroups(n, groups) {
			out = append(out, &memElement{doc: d, node: n})
		}
	})
	return out
}

// ElementsContainingText returns the deepest elements whose subtree text
// contains the substring.
func (d *MemoryDocument) ElementsContainingText(substr string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Element
	walk(d.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if !strings.Contains(textOf(n), substr) {
			return
		}
		// Skip when a child element also contains it: the child is deeper.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && strings.Contains(textOf(c), substr) {
				return
			}
		}
		out = append(out, &memElement{doc: d, node: n})
	})
	return out
}

// Mutations registers a subscriber notified after every document mutation.
// Notifications are dropped, not queued, when the subscriber is busy.
func (d *MemoryDocument) Mutations(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	d.mu.Lock()
	d.subs = append(d.subs, ch)
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		for i, sub := range d.subs {
			if sub == ch {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
	}()
	return ch, nil
}

// notifyLocked fans a mutation signal out to subscribers. Caller holds mu.
func (d *MemoryDocument) notifyLocked() {
	for _, sub := range d.subs {
		select {
		case sub <- struct{}{}:
		default:
		}
	}
}

// HTML serializes the current tree, mostly for test assertions.
func (d *MemoryDocument) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return sb.String(), nil
}

type memElement struct {
	doc  *MemoryDocument
	node *html.Node
}

func (e *memElement) Tag() string { return strings.ToLower(e.node.Data) }

func (e *memElement) Attrs() map[string]string {
	out := make(map[string]string, len(e.node.Attr))
	for _, a := range e.node.Attr {
		out[a.Key] = a.Val
	}
	return out
}

func (e *memElement) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return textOf(e.node)
}

func (e *memElement) Matches(selector string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return matchesGroups(e.node, parseSelector(selector))
}

func (e *memElement) Closest(selector string) (Element, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	groups := parseSelector(selector)
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && matchesGroups(n, groups) {
			return &memElement{doc: e.doc, node: n}, true
		}
	}
	return nil, false
}

func (e *memElement) Select(selector string) (Element, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, el := range e.doc.selectAllLocked(e.node, selector) {
		if el.(*memElement).node != e.node {
			return el, true
		}
	}
	return nil, false
}

func (e *memElement) PrependHTML(fragment string) error {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	first := e.node.FirstChild
	for _, n := range nodes {
		e.node.InsertBefore(n, first)
	}
	e.doc.notifyLocked()
	return nil
}

func (e *memElement) AppendHTML(fragment string) error {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	e.doc.notifyLocked()
	return nil
}

func (e *memElement) RemoveMatching(selector string) int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	groups := parseSelector(selector)
	var doomed []*html.Node
	walk(e.node, func(n *html.Node) {
		if n != e.node && n.Type == html.ElementNode && matchesGroups(n, groups) {
			doomed = append(doomed, n)
		}
	})
	removed := 0
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
			removed++
		}
	}
	if removed > 0 {
		e.doc.notifyLocked()
	}
	return removed
}

func parseFragment(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// matchesGroups reports whether the node matches any group, including the
// ancestor requirements of descendant chains.
func matchesGroups(n *html.Node, groups []compound) bool {
	for _, chain := range groups {
		if matchesChain(n, chain) {
			return true
		}
	}
	return false
}

func matchesChain(n *html.Node, chain compound) bool {
	if len(chain) == 0 {
		return false
	}
	subject := chain[len(chain)-1]
	if !subject.matches(nodeView{n}) {
		return false
	}
	rest := chain[:len(chain)-1]
	anc := n.Parent
	for i := len(rest) - 1; i >= 0; i-- {
		found := false
		for ; anc != nil; anc = anc.Parent {
			if anc.Type == html.ElementNode && rest[i].matches(nodeView{anc}) {
				found = true
				anc = anc.Parent
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// nodeView adapts a bare html.Node to the matcher without allocating a full
// memElement.
type nodeView struct{ n *html.Node }

func (v nodeView) Tag() string { return strings.ToLower(v.n.Data) }

func (v nodeView) Attrs() map[string]string {
	out := make(map[string]string, len(v.n.Attr))
	for _, a := range v.n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}
