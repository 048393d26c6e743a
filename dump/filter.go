package dump

import "strings"

// DefaultNoisePrefixes are bookkeeping records (conformances, witnesses,
// associated types) that add no structure to the declaration tree.
var DefaultNoisePrefixes = []string{
	"(normal_conformance",
	"(abstract_conformance",
	"(specialized_conformance",
	"(inherited_conformance",
	"(builtin_conformance",
	"(self_conformance",
	"(associated_conformance",
	"(assoc_conformance",
	"(assoc_type",
	"(value req=",
	"(witness",
}

// LineFilter drops whole dump lines before tokenizing.
type LineFilter struct {
	prefixes []string
}

// NewLineFilter returns a filter using the default noise prefixes plus extra.
func NewLineFilter(extra ...string) *LineFilter {
	prefixes := make([]string, 0, len(DefaultNoisePrefixes)+len(extra))
	prefixes = append(prefixes, DefaultNoisePrefixes...)
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &LineFilter{prefixes: prefixes}
}

// Keep reports whether a line survives filtering. Only lines opening a
// record are kept.
func (f *LineFilter) Keep(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "(") {
		return false
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(trimmed, p) {
			return false
		}
	}
	return true
}

// Apply blanks every dropped line. Line numbering is unchanged and the
// lexer collapses the resulting empty lines. Children of a dropped line
// are not reattached; they keep their own indentation.
func (f *LineFilter) Apply(input string) string {
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		if !f.Keep(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}
