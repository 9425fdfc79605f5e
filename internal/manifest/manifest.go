// Package manifest parses and rewrites requirements-style dependency
// manifests so a downstream project builds against a local library checkout
// instead of a published release.
package manifest

import (
	"fmt"
	"os"
	"strings"
)

// Manifest is an ordered sequence of requirement lines. Order is preserved
// through every transformation except the documented appends and deletions.
type Manifest struct {
	reqs []Requirement
}

// Parse tokenizes manifest text. Each non-blank line must parse into a
// requirement; the first malformed line aborts with a ParseError.
func Parse(data []byte) (*Manifest, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	// A trailing newline yields one phantom empty element; drop it so the
	// manifest round-trips byte for byte.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	m := &Manifest{reqs: make([]Requirement, 0, len(lines))}
	for i, line := range lines {
		req, err := parseRequirement(line, i+1)
		if err != nil {
			return nil, err
		}
		m.reqs = append(m.reqs, req)
	}
	return m, nil
}

// LoadFile reads and parses a manifest from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// Len returns the number of lines, blank and comment lines included.
func (m *Manifest) Len() int { return len(m.reqs) }

// Lines returns the serialized manifest lines in order.
func (m *Manifest) Lines() []string {
	out := make([]string, len(m.reqs))
	for i, r := range m.reqs {
		out[i] = r.String()
	}
	return out
}

// Requirements returns the non-blank requirements in order.
func (m *Manifest) Requirements() []Requirement {
	var out []Requirement
	for _, r := range m.reqs {
		if !r.IsBlank() {
			out = append(out, r)
		}
	}
	return out
}

// Bytes serializes the manifest with a trailing newline.
func (m *Manifest) Bytes() []byte {
	if len(m.reqs) == 0 {
		return nil
	}
	return []byte(strings.Join(m.Lines(), "\n") + "\n")
}

// WriteFile serializes the manifest to disk.
func (m *Manifest) WriteFile(path string) error {
	if err := os.WriteFile(path, m.Bytes(), 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
