// Package runner invokes the external build and test steps. Both commands
// are opaque collaborators: this package supplies their inputs (environment,
// manifest path, filter expression) and interprets only their exit status.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"downcheck/internal/environment"
	"downcheck/internal/logging"
)

// Runner is the build/test collaborator contract. Build failures and test
// failures are distinct outcomes for the run report, so they surface as
// distinct error types.
type Runner interface {
	Build(ctx context.Context, dir string, ov environment.Override, manifestPath string) error
	RunTests(ctx context.Context, dir string, ov environment.Override) error
}

// BuildFailure is a non-zero exit from the external build step.
type BuildFailure struct {
	Err error
}

func (e *BuildFailure) Error() string { return fmt.Sprintf("build step failed: %v", e.Err) }
func (e *BuildFailure) Unwrap() error { return e.Err }

// TestFailure is a non-zero exit from the external test step.
type TestFailure struct {
	Err error
}

func (e *TestFailure) Error() string { return fmt.Sprintf("test step failed: %v", e.Err) }
func (e *TestFailure) Unwrap() error { return e.Err }

// ExecRunner runs the build and test commands as subprocesses in the
// project checkout, with the override's env vars merged into the process
// environment.
type ExecRunner struct {
	// BuildCommand installs the rewritten manifest; the manifest path is
	// appended. Empty means pip install -r.
	BuildCommand []string

	// TestCommand runs the test suite; the filter expression is appended
	// as a pytest-style -m marker expression, plus -n auto when the
	// override permits parallel tests. Empty means python -m pytest.
	TestCommand []string

	// InstallCommand installs the override's system packages; the package
	// names are appended. Empty means sudo apt-get install -y. Only run
	// when the override lists packages.
	InstallCommand []string

	// Stdout and Stderr receive subprocess output; nil means os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

var (
	defaultBuild   = []string{"python", "-m", "pip", "install", "-r"}
	defaultTest    = []string{"python", "-m", "pytest"}
	defaultInstall = []string{"sudo", "apt-get", "install", "-y"}
)

// buildArgs returns the full build invocation for a manifest path.
func (r ExecRunner) buildArgs(manifestPath string) []string {
	cmd := r.BuildCommand
	if len(cmd) == 0 {
		cmd = defaultBuild
	}
	return append(append([]string(nil), cmd...), manifestPath)
}

// testArgs returns the full test invocation for an override.
func (r ExecRunner) testArgs(ov environment.Override) []string {
	cmd := r.TestCommand
	if len(cmd) == 0 {
		cmd = defaultTest
	}
	out := append([]string(nil), cmd...)
	if ov.TestFilter != "" {
		out = append(out, "-m", ov.TestFilter)
	}
	if ov.ParallelTests {
		out = append(out, "-n", "auto")
	}
	return out
}

// installArgs returns the system-package install invocation, or nil when
// the override needs no packages.
func (r ExecRunner) installArgs(ov environment.Override) []string {
	if len(ov.SystemPackages) == 0 {
		return nil
	}
	cmd := r.InstallCommand
	if len(cmd) == 0 {
		cmd = defaultInstall
	}
	return append(append([]string(nil), cmd...), ov.SystemPackages...)
}

func (r ExecRunner) Build(ctx context.Context, dir string, ov environment.Override, manifestPath string) error {
	if args := r.installArgs(ov); args != nil {
		if err := r.run(ctx, dir, ov, args); err != nil {
			return &BuildFailure{Err: fmt.Errorf("install system packages: %w", err)}
		}
	}
	if err := r.run(ctx, dir, ov, r.buildArgs(manifestPath)); err != nil {
		return &BuildFailure{Err: err}
	}
	return nil
}

func (r ExecRunner) RunTests(ctx context.Context, dir string, ov environment.Override) error {
	if err := r.run(ctx, dir, ov, r.testArgs(ov)); err != nil {
		return &TestFailure{Err: err}
	}
	return nil
}

func (r ExecRunner) run(ctx context.Context, dir string, ov environment.Override, args []string) error {
	logging.New("runner").Info("running", "dir", dir, "cmd", args[0], "args", args[1:])

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = mergeEnv(os.Environ(), ov.Env)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// mergeEnv appends override vars to a base environment in sorted key order
// so invocations are reproducible.
func mergeEnv(base []string, vars map[string]string) []string {
	if len(vars) == 0 {
		return base
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := append([]string(nil), base...)
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
