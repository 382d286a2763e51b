// Package lockdiff classifies the difference between two lockfile registries
// into disjoint added/updated/removed change sets.
package lockdiff

import (
	"sort"

	"lockpanel/internal/lockfile"
)

// Change records how a single package differs between the two snapshots.
// Exactly one of the following holds: PrevSection is nil (added), NewSection
// is nil (removed), or both sides are present and differ in version or
// section (updated). Packages identical on both axes are not materialized.
type Change struct {
	Name        string            `json:"name"`
	PrevSection *lockfile.Section `json:"prev_section"`
	NewSection  *lockfile.Section `json:"new_section"`
	PrevVersion *string           `json:"prev_version"`
	NewVersion  *string           `json:"new_version"`
}

// VersionChanged reports whether the version axis differs between snapshots.
func (c Change) VersionChanged() bool {
	if c.PrevVersion == nil || c.NewVersion == nil {
		return true
	}
	return *c.PrevVersion != *c.NewVersion
}

// SectionChanged reports whether the section axis differs between snapshots.
func (c Change) SectionChanged() bool {
	if c.PrevSection == nil || c.NewSection == nil {
		return true
	}
	return *c.PrevSection != *c.NewSection
}

// Result holds the three disjoint change categories keyed by package name.
// The union covers every name appearing in either registry whose state
// differs between the two snapshots.
type Result struct {
	Added   map[string]Change `json:"added"`
	Updated map[string]Change `json:"updated"`
	Removed map[string]Change `json:"removed"`
}

// Empty reports whether no package changed between the snapshots.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Updated) == 0 && len(r.Removed) == 0
}

// Classify compares two registries and buckets every differing package.
//
// A package moving between sections with an unchanged version still counts as
// updated; a package identical in name, version and section on both sides is
// a no-op and emits nothing. The result maps carry no intrinsic order;
// consumers needing stable display order sort by name (SortedNames).
func Classify(old, new lockfile.Registry) Result {
	res := Result{
		Added:   make(map[string]Change),
		Updated: make(map[string]Change),
		Removed: make(map[string]Change),
	}

	for name, prev := range old {
		cur, ok := new[name]
		if !ok {
			res.Removed[name] = Change{
				Name:        name,
				PrevSection: ptr(prev.Section),
				PrevVersion: ptr(prev.Version),
			}
			continue
		}
		if prev.Version != cur.Version || prev.Section != cur.Section {
			res.Updated[name] = Change{
				Name:        name,
				PrevSection: ptr(prev.Section),
				NewSection:  ptr(cur.Section),
				PrevVersion: ptr(prev.Version),
				NewVersion:  ptr(cur.Version),
			}
		}
	}

	for name, cur := range new {
		if _, ok := old[name]; ok {
			continue
		}
		res.Added[name] = Change{
			Name:       name,
			NewSection: ptr(cur.Section),
			NewVersion: ptr(cur.Version),
		}
	}

	return res
}

// SortedNames returns the keys of a change category in lexical order, giving
// reproducible output for rendering and snapshot tests.
func SortedNames(changes map[string]Change) []string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ptr[T any](v T) *T { return &v }
