package dom

import "strings"

// The cascades only ever need a small CSS subset: tag, #id, .class,
// attribute presence/equality/substring, the descendant combinator, and
// comma-joined groups. This matcher covers exactly that subset; selectors
// outside it simply never match instead of erroring, which keeps a bad
// operator-supplied selector from breaking the locate cycle.

type attrMatch struct {
	name  string
	op    string // "", "=" or "*="
	value string
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// compound is a descendant chain; the last entry is the subject, preceding
// entries must match ancestors in order.
type compound []simpleSelector

// parseSelector splits a selector into its comma-separated group of
// descendant chains.
func parseSelector(sel string) []compound {
	var groups []compound
	for _, part := range strings.Split(sel, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		chain := make(compound, 0, len(fields))
		for _, f := range fields {
			chain = append(chain, parseSimple(f))
		}
		groups = append(groups, chain)
	}
	return groups
}

func parseSimple(s string) simpleSelector {
	var out simpleSelector
	for len(s) > 0 {
		switch s[0] {
		case '#':
			rest := s[1:]
			end := tokenEnd(rest)
			out.id = rest[:end]
			s = rest[end:]
		case '.':
			rest := s[1:]
			end := tokenEnd(rest)
			out.classes = append(out.classes, rest[:end])
			s = rest[end:]
		case '[':
			close := strings.IndexByte(s, ']')
			if close < 0 {
				return out
			}
			out.attrs = append(out.attrs, parseAttr(s[1:close]))
			s = s[close+1:]
		default:
			end := tokenEnd(s)
			if end == 0 {
				return out
			}
			out.tag = strings.ToLower(s[:end])
			s = s[end:]
		}
	}
	return out
}

func parseAttr(body string) attrMatch {
	if i := strings.Index(body, "*="); i >= 0 {
		return attrMatch{name: body[:i], op: "*=", value: trimQuotes(body[i+2:])}
	}
	if i := strings.IndexByte(body, '='); i >= 0 {
		return attrMatch{name: body[:i], op: "=", value: trimQuotes(body[i+1:])}
	}
	return attrMatch{name: body}
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'`)
}

// tokenEnd returns the index where an identifier token stops.
func tokenEnd(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '#', '.', '[':
			return i
		}
	}
	return len(s)
}

// matchable is the minimal view a simpleSelector needs of an element.
type matchable interface {
	Tag() string
	Attrs() map[string]string
}

func (ss simpleSelector) matches(el matchable) bool {
	if ss.tag != "" && ss.tag != el.Tag() {
		return false
	}
	attrs := el.Attrs()
	if ss.id != "" && attrs["id"] != ss.id {
		return false
	}
	if len(ss.classes) > 0 {
		classes := strings.Fields(attrs["class"])
		for _, want := range ss.classes {
			found := false
			for _, have := range classes {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, am := range ss.attrs {
		got, ok := attrs[am.name]
		if !ok {
			return false
		}
		switch am.op {
		case "=":
			if got != am.value {
				return false
			}
		case "*=":
			if !strings.Contains(got, am.value) {
				return false
			}
		}
	}
	return true
}
