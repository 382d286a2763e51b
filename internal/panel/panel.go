// Package panel owns the injected diff panel's lifecycle: idempotent
// insertion at the located anchor and a single debounced mutation watcher
// that re-asserts the panel whenever the host page's client-side re-rendering
// discards it.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lockpanel/internal/anchor"
	"lockpanel/internal/dom"
	"lockpanel/internal/render"
)

// DefaultDebounce is how long after the last observed mutation the presence
// check runs. Bursts of mutations coalesce into one check.
const DefaultDebounce = 400 * time.Millisecond

// ErrNoAnchor is returned when no strategy produced a candidate, which only
// happens on a page with no root content element. Fatal to that cycle only;
// the watcher keeps retrying on later mutations.
var ErrNoAnchor = errors.New("no insertion point on page")

// Inserter places the rendered diff panel into a page and keeps it there.
// All state is confined to one owned instance so the single-watcher and
// single-panel invariants are testable by constructing fresh inserters.
type Inserter struct {
	locator  *anchor.Locator
	debounce time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	cached   string // rendered panel HTML, reused on re-insertion
	watching bool
	stop     context.CancelFunc
	done     chan struct{}
}

// NewInserter builds an inserter. A zero debounce uses DefaultDebounce.
func NewInserter(locator *anchor.Locator, debounce time.Duration, log *zap.Logger) *Inserter {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Inserter{locator: locator, debounce: debounce, log: log}
}

// EnsurePresent renders the document, inserts it at the best available
// anchor, and registers the mutation watcher if one is not already running.
// Calling it again replaces the existing panel rather than duplicating it,
// and never registers a second watcher.
func (ins *Inserter) EnsurePresent(doc dom.Document, mut dom.MutationSource, d render.Document) error {
	html, err := d.HTML()
	if err != nil {
		return err
	}

	ins.mu.Lock()
	ins.cached = html
	ins.mu.Unlock()

	if err := ins.insert(doc, html); err != nil {
		// A missing anchor is fatal to this cycle only: the watcher below
		// still runs so a later page mutation can succeed.
		ins.log.Warn("panel insertion skipped", zap.Error(err))
	}

	ins.startWatcher(doc, mut)
	return nil
}

// Present reports whether the panel is currently in the page.
func (ins *Inserter) Present(doc dom.Document) bool {
	_, ok := doc.Select("." + render.PanelClass)
	return ok
}

// Stop tears the watcher down and waits for it to exit.
func (ins *Inserter) Stop() {
	ins.mu.Lock()
	stop, done := ins.stop, ins.done
	ins.watching = false
	ins.stop, ins.done = nil, nil
	ins.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// insert runs one locate-and-insert cycle with the given panel markup.
func (ins *Inserter) insert(doc dom.Document, html string) error {
	cand, ok := ins.locator.Locate(doc)
	if !ok {
		return ErrNoAnchor
	}
	ins.log.Debug("anchor located", zap.Stringer("strategy", cand.Strategy))

	// At most one panel per page: clear any survivor before inserting,
	// both inside the candidate and anywhere a previous cycle left one.
	if root, ok := doc.Root(); ok {
		if n := root.RemoveMatching("." + render.PanelClass); n > 0 {
			ins.log.Debug("removed stale panel", zap.Int("count", n))
		}
	}

	target := ins.contentTarget(cand.Element)

	err := target.PrependHTML(html)
	if err == nil {
		return nil
	}
	ins.log.Warn("prepend failed, falling back to append", zap.Error(err))

	err = target.AppendHTML(html)
	if err == nil {
		return nil
	}
	ins.log.Warn("append failed, falling back to page root", zap.Error(err))

	root, ok := doc.Root()
	if !ok {
		return ErrNoAnchor
	}
	if err := root.PrependHTML(html); err != nil {
		return fmt.Errorf("all insertion techniques failed: %w", err)
	}
	return nil
}

// contentTarget prefers a known diff-content region inside the container so
// the panel sits beside the comparison content instead of before the
// file-header chrome.
func (ins *Inserter) contentTarget(container dom.Element) dom.Element {
	for _, sel := range ins.locator.ContentSelectors() {
		if inner, ok := container.Select(sel); ok {
			return inner
		}
	}
	return container
}

// startWatcher registers the debounced presence check. Idempotent: a second
// call while a watcher is alive does nothing.
func (ins *Inserter) startWatcher(doc dom.Document, mut dom.MutationSource) {
	ins.mu.Lock()
	if ins.watching {
		ins.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ins.watching = true
	ins.stop = cancel
	ins.done = done
	ins.mu.Unlock()

	sigs, err := mut.Mutations(ctx)
	if err != nil {
		ins.log.Error("mutation watcher unavailable, panel will not self-heal", zap.Error(err))
		ins.mu.Lock()
		ins.watching = false
		ins.stop, ins.done = nil, nil
		ins.mu.Unlock()
		cancel()
		close(done)
		return
	}

	go func() {
		defer close(done)
		timer := time.NewTimer(ins.debounce)
		if !timer.Stop() {
			<-timer.C
		}
		armed := false

		for {
			select {
			case <-ctx.Done():
				if armed && !timer.Stop() {
					<-timer.C
				}
				return
			case <-sigs:
				// Coalesce the burst: one check per quiet period.
				if armed && !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(ins.debounce)
				armed = true
			case <-timer.C:
				armed = false
				ins.check(doc)
			}
		}
	}()
}

// check re-runs the full locate-and-insert sequence with the cached document
// when the panel has gone missing.
func (ins *Inserter) check(doc dom.Document) {
	if ins.Present(doc) {
		return
	}
	ins.mu.Lock()
	html := ins.cached
	ins.mu.Unlock()
	if html == "" {
		return
	}
	ins.log.Info("panel missing after page mutation, re-inserting")
	if err := ins.insert(doc, html); err != nil {
		ins.log.Warn("panel re-insertion failed", zap.Error(err))
	}
}
