// Package lockfile parses Composer-style lockfile snapshots into a canonical
// package registry. The two snapshots being compared are fetched independently
// and either may be absent or truncated, so parsing never fails hard: a
// malformed document yields an empty registry and a logged warning.
package lockfile

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Section identifies which dependency table a package was declared in.
type Section string

const (
	SectionDirect      Section = "direct"
	SectionDevelopment Section = "development"
)

// Entry is a single resolved package as declared in one snapshot.
type Entry struct {
	Section Section
	Version string
}

// Registry maps package name to its entry for one lockfile snapshot.
// Built once per snapshot and never mutated afterwards.
type Registry map[string]Entry

// document mirrors the two array sections of the source format.
// Unknown fields (hashes, source URLs, platform requirements) are ignored.
type document struct {
	Packages    []packageRecord `json:"packages"`
	PackagesDev []packageRecord `json:"packages-dev"`
}

type packageRecord struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Parse turns raw lockfile text into a Registry.
//
// Missing sections are treated as empty, not as errors. Later duplicate names
// within the same section override earlier ones, matching how a section is a
// mapping by name in the source format. Raw text that is empty or not a
// well-formed JSON document yields an empty registry.
func Parse(raw []byte, log *zap.Logger) Registry {
	reg := make(Registry)
	if len(raw) == 0 {
		return reg
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("lockfile not parseable, treating as absent", zap.Error(err))
		return reg
	}

	for _, rec := range doc.Packages {
		if rec.Name == "" {
			continue
		}
		reg[rec.Name] = Entry{Section: SectionDirect, Version: rec.Version}
	}
	for _, rec := range doc.PackagesDev {
		if rec.Name == "" {
			continue
		}
		reg[rec.Name] = Entry{Section: SectionDevelopment, Version: rec.Version}
	}
	return reg
}
