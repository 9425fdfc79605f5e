package manifest

import (
	"strings"
)

// Requirement is one parsed manifest line: a distribution name, optional
// extras, and an optional specifier (version pin or "@ <source>" reference).
// Blank and comment-only lines are carried through untouched with an empty
// Name so the manifest round-trips line for line.
type Requirement struct {
	Name    string
	Extras  []string
	Spec    string // e.g. "==1.0", ">=2,<3", "@ git+https://..."
	Comment string // trailing "# ..." text, without the marker

	raw string // original line; empty once a line has been rewritten
}

// NormalizeName lowers a distribution name and collapses runs of the
// separator characters '-', '_' and '.' into a single '-', so that
// "Foo._-Bar" and "foo-bar" compare equal, the way package indexes do.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	sep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}

// IsBlank reports whether the requirement is a blank or comment-only line.
func (r Requirement) IsBlank() bool { return r.Name == "" }

// String serializes the requirement back to a manifest line. Untouched
// lines are returned verbatim; rewritten lines are rebuilt from fields.
func (r Requirement) String() string {
	if r.raw != "" || r.IsBlank() {
		return r.raw
	}
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	if r.Spec != "" {
		if strings.HasPrefix(r.Spec, "@") {
			b.WriteByte(' ')
		}
		b.WriteString(r.Spec)
	}
	if r.Comment != "" {
		b.WriteString("  # ")
		b.WriteString(r.Comment)
	}
	return b.String()
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.':
		return true
	}
	return false
}

// parseRequirement tokenizes one manifest line. lineno is 1-based and only
// used for diagnostics.
func parseRequirement(line string, lineno int) (Requirement, error) {
	raw := line

	// Split off a trailing comment. Requirement lines never contain '#'
	// outside comments in this dialect.
	comment := ""
	if i := strings.IndexByte(line, '#'); i >= 0 {
		comment = strings.TrimSpace(line[i+1:])
		line = line[:i]
	}
	line = strings.TrimSpace(line)

	if line == "" {
		return Requirement{raw: raw}, nil
	}

	// Distribution name marker.
	end := 0
	for end < len(line) && isNameByte(line[end]) {
		end++
	}
	if end == 0 {
		return Requirement{}, &ParseError{Line: lineno, Text: raw, Reason: "line does not start with a distribution name"}
	}
	name := line[:end]
	rest := line[end:]

	// Optional extras: [a,b]
	var extras []string
	if strings.HasPrefix(rest, "[") {
		closing := strings.IndexByte(rest, ']')
		if closing < 0 {
			return Requirement{}, &ParseError{Line: lineno, Text: raw, Reason: "unterminated extras bracket"}
		}
		for _, e := range strings.Split(rest[1:closing], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				return Requirement{}, &ParseError{Line: lineno, Text: raw, Reason: "empty extra"}
			}
			extras = append(extras, e)
		}
		rest = rest[closing+1:]
	}

	spec := strings.TrimSpace(rest)
	if spec != "" && !strings.HasPrefix(spec, "@") && !strings.ContainsAny(spec[:1], "=<>!~;") {
		return Requirement{}, &ParseError{Line: lineno, Text: raw, Reason: "unrecognized version specifier"}
	}

	return Requirement{
		Name:    name,
		Extras:  extras,
		Spec:    spec,
		Comment: comment,
		raw:     raw,
	}, nil
}
