package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"downcheck/internal/logging"
)

// Rewriter redirects a downstream manifest at a local library checkout.
// The transformation runs in three ordered steps: propagate the library's
// own version-controlled requirements, redirect the library line to a
// file:// reference, then strip dropped dependencies. All three are applied
// to a working copy; the input manifest is untouched unless every step
// succeeds.
type Rewriter struct {
	// Library is the registry name of the library under test, matched
	// against manifest lines by normalized distribution name.
	Library string

	// LocalPath is the filesystem path of the in-progress library checkout.
	LocalPath string

	// Drop lists distribution names whose lines are deleted outright
	// (e.g. an MPI binding the target project cannot build).
	Drop []string

	// PropagateFrom is the path of the library's own requirements file.
	// Its version-control requirement lines are appended to the downstream
	// manifest so transitive source dependencies resolve consistently.
	// Empty disables propagation.
	PropagateFrom string
}

// Rewrite applies the full transformation to m, atomically.
func (rw *Rewriter) Rewrite(m *Manifest) error {
	work := make([]Requirement, len(m.reqs))
	copy(work, m.reqs)

	work, err := rw.propagate(work)
	if err != nil {
		return err
	}
	work, err = rw.redirect(work)
	if err != nil {
		return err
	}
	work = rw.strip(work)

	m.reqs = work
	return nil
}

// propagate appends the library's own VCS requirement lines to the end of
// the manifest. Lines already present verbatim are skipped.
func (rw *Rewriter) propagate(reqs []Requirement) ([]Requirement, error) {
	if rw.PropagateFrom == "" {
		return reqs, nil
	}
	lib, err := LoadFile(rw.PropagateFrom)
	if err != nil {
		return nil, fmt.Errorf("library requirements: %w", err)
	}

	seen := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		seen[r.String()] = true
	}

	logger := logging.New("rewriter")
	for _, r := range lib.Requirements() {
		if !isVCSSpec(r.Spec) || seen[r.String()] {
			continue
		}
		logger.Debug("propagating requirement", "name", r.Name, "spec", r.Spec)
		reqs = append(reqs, r)
		seen[r.String()] = true
	}
	return reqs, nil
}

// redirect replaces the single line naming the library with a file://
// reference to the local checkout. Zero or multiple matches abort.
func (rw *Rewriter) redirect(reqs []Requirement) ([]Requirement, error) {
	want := NormalizeName(rw.Library)
	match := -1
	matches := 0
	for i, r := range reqs {
		if !r.IsBlank() && NormalizeName(r.Name) == want {
			match = i
			matches++
		}
	}
	if matches != 1 {
		return nil, &RewriteError{Library: rw.Library, Matches: matches}
	}

	abs, err := filepath.Abs(rw.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("resolve local path %q: %w", rw.LocalPath, err)
	}

	orig := reqs[match]
	reqs[match] = Requirement{
		Name:   orig.Name,
		Extras: orig.Extras,
		Spec:   "@ file://" + filepath.ToSlash(abs),
	}
	return reqs, nil
}

// strip deletes lines whose normalized name is in the drop list. Applying
// the same drop list twice is a no-op by construction.
func (rw *Rewriter) strip(reqs []Requirement) []Requirement {
	if len(rw.Drop) == 0 {
		return reqs
	}
	drop := make(map[string]bool, len(rw.Drop))
	for _, name := range rw.Drop {
		drop[NormalizeName(name)] = true
	}
	out := reqs[:0]
	for _, r := range reqs {
		if !r.IsBlank() && drop[NormalizeName(r.Name)] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// isVCSSpec reports whether a specifier points at a version-control source,
// e.g. "@ git+https://github.com/inducer/pytools.git".
func isVCSSpec(spec string) bool {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(spec), "@"))
	for _, scheme := range []string{"git+", "hg+", "svn+", "bzr+"} {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}
