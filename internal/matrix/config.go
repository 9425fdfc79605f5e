// Package matrix loads the static set of downstream projects a
// compatibility run exercises. The matrix is read once at startup and
// passed around as a value; nothing mutates it after load.
package matrix

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultFS embed.FS

// ErrEmptyMatrix is the one fatal configuration error: a matrix with no
// projects is a precondition violation, not a per-project failure.
var ErrEmptyMatrix = errors.New("matrix: no downstream projects configured")

// Project identifies one downstream consumer of the library under test.
type Project struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// Branch overrides the clone ref; empty means the default branch HEAD.
	Branch string `yaml:"branch,omitempty"`

	// Manifest is the dependency manifest path inside the checkout.
	// Empty means requirements.txt.
	Manifest string `yaml:"manifest,omitempty"`
}

// ManifestPath returns the manifest path inside the project checkout.
func (p Project) ManifestPath() string {
	if p.Manifest != "" {
		return p.Manifest
	}
	return "requirements.txt"
}

// Matrix is the full compatibility-run configuration.
type Matrix struct {
	// Library is the registry name of the library under test, matched
	// against downstream manifest lines.
	Library string `yaml:"library"`

	Projects []Project `yaml:"projects"`

	// BuildCommand and TestCommand override the external build/test
	// invocations. Both are opaque to this tool.
	BuildCommand []string `yaml:"build_command,omitempty"`
	TestCommand  []string `yaml:"test_command,omitempty"`
}

// Parse decodes and validates a matrix document.
func Parse(data []byte) (*Matrix, error) {
	var m Matrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse matrix: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a matrix file from disk. An empty path loads the embedded
// default matrix.
func Load(path string) (*Matrix, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	return Parse(data)
}

// Default returns the matrix embedded in the binary.
func Default() (*Matrix, error) {
	data, err := defaultFS.ReadFile("matrix.yaml")
	if err != nil {
		return nil, fmt.Errorf("embedded matrix: %w", err)
	}
	return Parse(data)
}

func (m *Matrix) validate() error {
	if m.Library == "" {
		return errors.New("matrix: library name is required")
	}
	if len(m.Projects) == 0 {
		return ErrEmptyMatrix
	}
	seen := make(map[string]bool, len(m.Projects))
	for _, p := range m.Projects {
		if p.Name == "" || p.URL == "" {
			return fmt.Errorf("matrix: project needs both name and url (got name=%q url=%q)", p.Name, p.URL)
		}
		if seen[p.Name] {
			return fmt.Errorf("matrix: duplicate project %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Select narrows the matrix to the named projects, preserving matrix order.
// A name outside the configured matrix is a configuration error caught
// here, at the definition boundary, never later in the run.
func (m *Matrix) Select(names []string) (*Matrix, error) {
	if len(names) == 0 {
		return m, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	sub := &Matrix{Library: m.Library, BuildCommand: m.BuildCommand, TestCommand: m.TestCommand}
	for _, p := range m.Projects {
		if wanted[p.Name] {
			sub.Projects = append(sub.Projects, p)
			delete(wanted, p.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("matrix: unknown project %q", n)
	}
	if len(sub.Projects) == 0 {
		return nil, ErrEmptyMatrix
	}
	return sub, nil
}
