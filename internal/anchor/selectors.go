package anchor

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Selectors holds the ordered selector lists the cascade walks. The host
// page's markup is third-party and versioned independently of this tool, so
// the lists are data, not code: operators can override them from a YAML file
// and chase a page redesign without a rebuild.
type Selectors struct {
	// Rows identify the lockfile's own row in a rendered comparison view.
	Rows []string `yaml:"rows"`
	// Containers are the per-file container elements rows ascend to.
	Containers []string `yaml:"containers"`
	// Content are the inner diff-content targets preferred over the raw
	// container when inserting.
	Content []string `yaml:"content"`
	// Regions are coarse whole-comparison-area selectors.
	Regions []string `yaml:"regions"`
}

// DefaultSelectors matches a GitHub-style pull-request files view.
func DefaultSelectors() Selectors {
	return Selectors{
		Rows: []string{
			"[data-tagsearch-path]",
			".file-header[data-path]",
			".file-info",
		},
		Containers: []string{
			".file[data-details-container-group]",
			".file",
			"[id*=diff-]",
		},
		Content: []string{
			".js-file-content",
			".blob-wrapper",
		},
		Regions: []string{
			"#files",
			".diff-view",
			"main",
		},
	}
}

// LoadSelectors reads a YAML override file. Lists left empty in the file keep
// their defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	var override Selectors
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors: %w", err)
	}
	if len(override.Rows) > 0 {
		sel.Rows = override.Rows
	}
	if len(override.Containers) > 0 {
		sel.Containers = override.Containers
	}
	if len(override.Content) > 0 {
		sel.Content = override.Content
	}
	if len(override.Regions) > 0 {
		sel.Regions = override.Regions
	}
	return sel, nil
}

// SelectorStore hands out the current selector lists and hot-reloads them
// when the override file changes on disk.
type SelectorStore struct {
	mu      sync.RWMutex
	current Selectors
	watcher *fsnotify.Watcher
	log     *zap.Logger
}

// NewSelectorStore returns a store serving the given lists.
func NewSelectorStore(sel Selectors, log *zap.Logger) *SelectorStore {
	return &SelectorStore{current: sel, log: log}
}

// Current returns the selector lists in effect.
func (s *SelectorStore) Current() Selectors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// WatchFile reloads the store from path whenever the file is rewritten.
// A reload that fails to parse keeps the previous lists.
func (s *SelectorStore) WatchFile(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("selector watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				sel, err := LoadSelectors(path)
				if err != nil {
					s.log.Warn("selector reload failed, keeping previous lists",
						zap.String("path", path), zap.Error(err))
					continue
				}
				s.mu.Lock()
				s.current = sel
				s.mu.Unlock()
				s.log.Info("selector lists reloaded", zap.String("path", path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("selector watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if one was started.
func (s *SelectorStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
