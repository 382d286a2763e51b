package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lockpanel/internal/dom"
	"lockpanel/internal/render"
)

// LivePage adapts a rod page to the dom boundary. Element identity across
// the Go/JS boundary is kept by tagging located elements with a
// data-lockpanel-eid attribute and addressing them by it afterwards.
type LivePage struct {
	id   string
	page *rod.Page
	poll time.Duration
	log  *zap.Logger
}

func newLivePage(page *rod.Page, poll time.Duration, log *zap.Logger) *LivePage {
	id := uuid.NewString()
	return &LivePage{
		id:   id,
		page: page,
		poll: poll,
		log:  log.With(zap.String("page", id)),
	}
}

// ID returns the page's tracking identifier.
func (p *LivePage) ID() string { return p.id }

// eval runs a JS function on the page and decodes its JSON result into out.
// A nil out discards the result.
func (p *LivePage) eval(js string, out interface{}, args ...interface{}) error {
	res, err := p.page.Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return err
	}
	if out == nil || res == nil || res.Value.Nil() {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}

// tagJS assigns stable element ids inside the page. Installed lazily by
// every query snippet that needs it.
const tagJS = `
	const lp = window.__lockpanel = window.__lockpanel || { seq: 0 };
	const tag = (el) => {
		if (!el.hasAttribute('data-lockpanel-eid')) {
			el.setAttribute('data-lockpanel-eid', 'lp' + (++lp.seq));
		}
		return el.getAttribute('data-lockpanel-eid');
	};
`

// Root returns the page body.
func (p *LivePage) Root() (dom.Element, bool) {
	var eid *string
	err := p.eval(`() => {`+tagJS+`
		return document.body ? tag(document.body) : null;
	}`, &eid)
	if err != nil || eid == nil {
		return nil, false
	}
	return &liveElement{page: p, eid: *eid}, true
}

// Select returns the first element matching the selector.
func (p *LivePage) Select(selector string) (dom.Element, bool) {
	all := p.SelectAll(selector)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// SelectAll returns every element matching the selector. An invalid selector
// yields no matches rather than an error, so a bad operator-supplied
// selector cannot break a locate cycle.
func (p *LivePage) SelectAll(selector string) []dom.Element {
	var eids []string
	err := p.eval(`(sel) => {`+tagJS+`
		try {
			return Array.from(document.querySelectorAll(sel)).map(tag);
		} catch (e) {
			return [];
		}
	}`, &eids, selector)
	if err != nil {
		p.log.Debug("selectAll failed", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	out := make([]dom.Element, 0, len(eids))
	for _, eid := range eids {
		out = append(out, &liveElement{page: p, eid: eid})
	}
	return out
}

// ElementsContainingText returns the deepest elements whose text contains
// the substring.
func (p *LivePage) ElementsContainingText(substr string) []dom.Element {
	var eids []string
	err := p.eval(`(needle) => {`+tagJS+`
		const out = [];
		for (const el of document.querySelectorAll('*')) {
			if (!(el.textContent || '').includes(needle)) continue;
			let deeper = false;
			for (const child of el.children) {
				if ((child.textContent || '').includes(needle)) { deeper = true; break; }
			}
			if (!deeper) out.push(tag(el));
		}
		return out;
	}`, &eids, substr)
	if err != nil {
		p.log.Debug("text scan failed", zap.Error(err))
		return nil
	}
	out := make([]dom.Element, 0, len(eids))
	for _, eid := range eids {
		out = append(out, &liveElement{page: p, eid: eid})
	}
	return out
}

// Mutations installs a MutationObserver feeding an in-page counter and
// drains it on a ticker, emitting one coalescible signal per non-empty
// drain. The observer ignores the panel's own insertion so our writes do
// not wake the watcher.
func (p *LivePage) Mutations(ctx context.Context) (<-chan struct{}, error) {
	err := p.eval(`(panelClass) => {
		const w = window;
		if (w.__lockpanelHooked) return true;
		w.__lockpanelHooked = true;
		w.__lockpanelMutations = 0;

		const isPanel = (node) =>
			node && node.nodeType === 1 && node.classList &&
			node.classList.contains(panelClass);

		const obs = new MutationObserver((mutations) => {
			for (const m of mutations) {
				let ours = m.addedNodes.length > 0;
				for (const n of m.addedNodes) {
					if (!isPanel(n)) { ours = false; break; }
				}
				if (ours) continue;
				w.__lockpanelMutations++;
			}
		});
		obs.observe(document.documentElement || document.body, {
			childList: true,
			subtree: true,
		});
		return true;
	}`, nil, render.PanelClass)
	if err != nil {
		return nil, fmt.Errorf("install mutation observer: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		ticker := time.NewTicker(p.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var n int
				err := p.eval(`() => {
					const n = window.__lockpanelMutations || 0;
					window.__lockpanelMutations = 0;
					return n;
				}`, &n)
				if err != nil {
					p.log.Debug("mutation drain failed", zap.Error(err))
					continue
				}
				if n == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

// liveElement addresses one tagged element inside the page.
type liveElement struct {
	page *LivePage
	eid  string
}

// evalOn runs a JS function receiving the element as its first argument.
func (e *liveElement) evalOn(body string, out interface{}, args ...interface{}) error {
	js := `(eid, ...rest) => {
		const el = document.querySelector('[data-lockpanel-eid="' + eid + '"]');
		if (!el) return null;
		const fn = ` + body + `;
		return fn(el, ...rest);
	}`
	return e.page.eval(js, out, append([]interface{}{e.eid}, args...)...)
}

func (e *liveElement) Tag() string {
	var tag string
	_ = e.evalOn(`(el) => el.tagName.toLowerCase()`, &tag)
	return tag
}

func (e *liveElement) Attrs() map[string]string {
	out := make(map[string]string)
	_ = e.evalOn(`(el) => {
		const attrs = {};
		for (const { name, value } of el.attributes) attrs[name] = value;
		return attrs;
	}`, &out)
	return out
}

func (e *liveElement) Text() string {
	var text string
	_ = e.evalOn(`(el) => el.textContent || ''`, &text)
	return text
}

func (e *liveElement) Matches(selector string) bool {
	var ok bool
	_ = e.evalOn(`(el, sel) => {
		try { return el.matches(sel); } catch (err) { return false; }
	}`, &ok, selector)
	return ok
}

func (e *liveElement) Closest(selector string) (dom.Element, bool) {
	var eid *string
	err := e.evalOn(`(el, sel) => {`+tagJS+`
		try {
			const hit = el.closest(sel);
			return hit ? tag(hit) : null;
		} catch (err) {
			return null;
		}
	}`, &eid, selector)
	if err != nil || eid == nil {
		return nil, false
	}
	return &liveElement{page: e.page, eid: *eid}, true
}

func (e *liveElement) Select(selector string) (dom.Element, bool) {
	var eid *string
	err := e.evalOn(`(el, sel) => {`+tagJS+`
		try {
			const hit = el.querySelector(sel);
			return hit ? tag(hit) : null;
		} catch (err) {
			return null;
		}
	}`, &eid, selector)
	if err != nil || eid == nil {
		return nil, false
	}
	return &liveElement{page: e.page, eid: *eid}, true
}

func (e *liveElement) PrependHTML(fragment string) error {
	var ok *bool
	err := e.evalOn(`(el, html) => {
		el.insertAdjacentHTML('afterbegin', html);
		return true;
	}`, &ok, fragment)
	if err != nil {
		return fmt.Errorf("prepend: %w", err)
	}
	if ok == nil {
		return fmt.Errorf("prepend: element %s gone", e.eid)
	}
	return nil
}

func (e *liveElement) AppendHTML(fragment string) error {
	var ok *bool
	err := e.evalOn(`(el, html) => {
		el.insertAdjacentHTML('beforeend', html);
		return true;
	}`, &ok, fragment)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	if ok == nil {
		return fmt.Errorf("append: element %s gone", e.eid)
	}
	return nil
}

func (e *liveElement) RemoveMatching(selector string) int {
	var n int
	_ = e.evalOn(`(el, sel) => {
		let removed = 0;
		try {
			for (const hit of el.querySelectorAll(sel)) {
				hit.remove();
				removed++;
			}
		} catch (err) {}
		return removed;
	}`, &n, selector)
	return n
}
