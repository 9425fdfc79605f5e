package manifest

import "fmt"

// ParseError reports a manifest line that cannot be tokenized into a
// requirement (distribution name, optional extras, optional specifier).
type ParseError struct {
	Line   int    // 1-based line number in the manifest
	Text   string // the offending line, verbatim
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// RewriteError reports a redirection target that matched zero or more than
// one manifest line. An ambiguous match would silently build against the
// wrong version, so it is a hard error rather than a best-effort pick.
type RewriteError struct {
	Library string
	Matches int
}

func (e *RewriteError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("manifest: no line references %q; cannot redirect to local checkout", e.Library)
	}
	return fmt.Sprintf("manifest: %d lines reference %q; redirection target is ambiguous", e.Matches, e.Library)
}
