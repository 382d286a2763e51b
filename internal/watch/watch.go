// Package watch is the thin glue wiring fetch results through the
// parse → classify → render → insert pipeline and keeping the panel alive
// until the caller is done with the page.
package watch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lockpanel/internal/anchor"
	"lockpanel/internal/dom"
	"lockpanel/internal/hostapi"
	"lockpanel/internal/lockdiff"
	"lockpanel/internal/lockfile"
	"lockpanel/internal/panel"
	"lockpanel/internal/render"
)

// Options configures one watch run.
type Options struct {
	Pull      hostapi.PullRequest
	Lockfile  string // path of the lockfile within the repository
	API       *hostapi.Client
	Doc       dom.Document
	Mutations dom.MutationSource
	Selectors *anchor.SelectorStore
	Debounce  time.Duration
	Log       *zap.Logger
}

// Run executes the full pipeline and then parks until the context is
// cancelled, leaving the panel inserter's watcher to re-assert the panel
// through host-page re-renders. Returns (false, nil) when the pull request
// does not touch the lockfile.
func Run(ctx context.Context, opts Options) (bool, error) {
	pr, err := opts.API.Pull(ctx, opts.Pull)
	if err != nil {
		return false, fmt.Errorf("resolve pull request: %w", err)
	}

	changed, err := opts.API.ChangedFiles(ctx, pr)
	if err != nil {
		return false, fmt.Errorf("list changed files: %w", err)
	}
	if !contains(changed, opts.Lockfile) {
		opts.Log.Info("lockfile unchanged in this pull request, nothing to do",
			zap.String("lockfile", opts.Lockfile))
		return false, nil
	}

	oldRaw, newRaw := opts.API.FetchPair(ctx, pr, opts.Lockfile)
	result := lockdiff.Classify(
		lockfile.Parse([]byte(oldRaw), opts.Log),
		lockfile.Parse([]byte(newRaw), opts.Log),
	)
	doc := render.Build(result)
	opts.Log.Info("lockfile diff computed",
		zap.Int("added", len(result.Added)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("removed", len(result.Removed)))

	locator := anchor.NewLocator(opts.Selectors, opts.Lockfile, opts.Log)
	inserter := panel.NewInserter(locator, opts.Debounce, opts.Log)
	defer inserter.Stop()

	if err := inserter.EnsurePresent(opts.Doc, opts.Mutations, doc); err != nil {
		// Degraded, not fatal: the worst user-visible outcome is a
		// missing panel, never a broken page.
		opts.Log.Error("panel could not be established", zap.Error(err))
	}

	<-ctx.Done()
	return true, nil
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}
