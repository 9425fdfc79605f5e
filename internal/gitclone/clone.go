// Package gitclone is the version-control collaborator: it fetches a
// downstream project's default-branch HEAD into an isolated directory.
package gitclone

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"downcheck/internal/logging"
)

// Cloner fetches a repository into dest. branch may be empty for the
// default branch HEAD. A failure is final: the orchestrator never retries.
type Cloner interface {
	Clone(ctx context.Context, url, branch, dest string) error
}

// CloneError carries the clone failure diagnostics for the run report.
type CloneError struct {
	URL    string
	Output string
	Err    error
}

func (e *CloneError) Error() string {
	msg := fmt.Sprintf("clone %s: %v", e.URL, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CloneError) Unwrap() error { return e.Err }

// ExecCloner shells out to git. Shallow clones only; the compatibility run
// never needs history.
type ExecCloner struct {
	// Git is the git binary; empty means "git" from PATH.
	Git string
}

func (c ExecCloner) Clone(ctx context.Context, url, branch, dest string) error {
	git := c.Git
	if git == "" {
		git = "git"
	}
	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)

	logging.New("clone").Info("cloning", "url", url, "dest", dest)
	out, err := exec.CommandContext(ctx, git, args...).CombinedOutput()
	if err != nil {
		return &CloneError{URL: url, Output: lastLines(string(out), 5), Err: err}
	}
	return nil
}

// lastLines keeps the tail of command output for diagnostics.
func lastLines(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
