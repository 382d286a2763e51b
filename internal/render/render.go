// Package render turns a classified lockfile diff into a display document:
// a structured, serializable set of table blocks decoupled from any specific
// host page's styling. The same document renders to panel HTML for injection
// or to plain text for the CLI.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"lockpanel/internal/lockdiff"
	"lockpanel/internal/lockfile"
)

// PanelClass is the reserved identifying class carried by the injected panel
// element. The inserter uses it for idempotent remove-then-insert and the
// mutation feed uses it to ignore the panel's own writes.
const PanelClass = "lockpanel-panel"

// Kind tags a block with the change category it displays.
type Kind string

const (
	KindAdded     Kind = "added"
	KindUpdated   Kind = "updated"
	KindRemoved   Kind = "removed"
	KindNoChanges Kind = "no-changes"
)

// Block is one table of the display document.
type Block struct {
	Kind    Kind
	Title   string
	Columns []string
	Rows    [][]string
}

// Document is the full display-ready diff. Output is a pure function of the
// input result: no timestamps, no random ordering, so re-insertion of the
// same diff is idempotent.
type Document struct {
	Title  string
	Blocks []Block
}

// Build constructs the display document for a classified diff. Each category
// block is omitted entirely when empty; when all three are empty a single
// "no changes" placeholder block is emitted instead.
func Build(res lockdiff.Result) Document {
	doc := Document{Title: "Lockfile changes"}

	if res.Empty() {
		doc.Blocks = append(doc.Blocks, Block{
			Kind:  KindNoChanges,
			Title: "No package changes",
		})
		return doc
	}

	if len(res.Added) > 0 {
		doc.Blocks = append(doc.Blocks, sideBlock(KindAdded, "Added", res.Added, false))
	}
	if len(res.Updated) > 0 {
		doc.Blocks = append(doc.Blocks, updatedBlock(res.Updated))
	}
	if len(res.Removed) > 0 {
		doc.Blocks = append(doc.Blocks, sideBlock(KindRemoved, "Removed", res.Removed, true))
	}
	return doc
}

// sideBlock renders the single-sided categories. Added rows read the new
// side, removed rows the previous side.
func sideBlock(kind Kind, title string, changes map[string]lockdiff.Change, prev bool) Block {
	b := Block{
		Kind:    kind,
		Title:   fmt.Sprintf("%s (%d)", title, len(changes)),
		Columns: []string{"Package", "Version", "Section"},
	}
	for _, name := range lockdiff.SortedNames(changes) {
		c := changes[name]
		version, section := c.NewVersion, c.NewSection
		if prev {
			version, section = c.PrevVersion, c.PrevSection
		}
		b.Rows = append(b.Rows, []string{name, deref(version), sectionLabel(section)})
	}
	return b
}

// updatedBlock renders each axis as "from → to" only when that specific axis
// changed; an unchanged axis renders as a single value so the table never
// implies a change that did not occur.
func updatedBlock(changes map[string]lockdiff.Change) Block {
	b := Block{
		Kind:    KindUpdated,
		Title:   fmt.Sprintf("Updated (%d)", len(changes)),
		Columns: []string{"Package", "Version", "Section"},
	}
	for _, name := range lockdiff.SortedNames(changes) {
		c := changes[name]
		version := deref(c.NewVersion)
		if c.VersionChanged() {
			version = fmt.Sprintf("%s → %s", deref(c.PrevVersion), deref(c.NewVersion))
		}
		section := sectionLabel(c.NewSection)
		if c.SectionChanged() {
			section = fmt.Sprintf("%s → %s", sectionLabel(c.PrevSection), sectionLabel(c.NewSection))
		}
		b.Rows = append(b.Rows, []string{name, version, section})
	}
	return b
}

var panelTmpl = template.Must(template.New("panel").Parse(`<div class="{{.PanelClass}}">
<div class="lockpanel-title">{{.Doc.Title}}</div>
{{- range .Doc.Blocks}}
<div class="lockpanel-block lockpanel-{{.Kind}}">
<div class="lockpanel-block-title">{{.Title}}</div>
{{- if .Rows}}
<table class="lockpanel-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</div>
{{- end}}
</div>`))

// HTML serializes the document to the panel markup injected into the page.
// All cell values pass through template escaping; output is byte-identical
// for identical input.
func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	err := panelTmpl.Execute(&buf, struct {
		PanelClass string
		Doc        Document
	}{PanelClass: PanelClass, Doc: d})
	if err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return buf.String(), nil
}

// Text serializes the document for terminal output.
func (d Document) Text() string {
	var sb strings.Builder
	sb.WriteString(d.Title)
	sb.WriteString("\n")
	for _, b := range d.Blocks {
		sb.WriteString("\n")
		sb.WriteString(b.Title)
		sb.WriteString("\n")
		for _, row := range b.Rows {
			sb.WriteString("  ")
			sb.WriteString(strings.Join(row, "  "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sectionLabel(s *lockfile.Section) string {
	if s == nil {
		return ""
	}
	return string(*s)
}
