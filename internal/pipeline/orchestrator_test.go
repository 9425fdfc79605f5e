package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"downcheck/internal/environment"
	"downcheck/internal/matrix"
	"downcheck/internal/runner"
)

// fakeCloner materializes a checkout by writing the configured manifest
// content; projects in failWith error out instead.
type fakeCloner struct {
	manifests map[string]string // project name -> requirements.txt content
	failWith  map[string]error
}

func (c *fakeCloner) Clone(_ context.Context, url, _ string, dest string) error {
	name := filepath.Base(dest)
	if err, ok := c.failWith[name]; ok {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	content, ok := c.manifests[name]
	if !ok {
		content = "grudge==2.3\n"
	}
	return os.WriteFile(filepath.Join(dest, "requirements.txt"), []byte(content), 0644)
}

// fakeRunner records build/test invocations and the manifest content seen
// at build time.
type fakeRunner struct {
	mu        sync.Mutex
	built     []string
	tested    []string
	manifests map[string]string
	overrides map[string]environment.Override

	buildErr map[string]error
	testErr  map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		manifests: map[string]string{},
		overrides: map[string]environment.Override{},
		buildErr:  map[string]error{},
		testErr:   map[string]error{},
	}
}

func (r *fakeRunner) Build(_ context.Context, dir string, ov environment.Override, manifestPath string) error {
	name := filepath.Base(dir)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.built = append(r.built, name)
	r.manifests[name] = string(data)
	r.overrides[name] = ov
	r.mu.Unlock()
	if err := r.buildErr[name]; err != nil {
		return &runner.BuildFailure{Err: err}
	}
	return nil
}

func (r *fakeRunner) RunTests(_ context.Context, dir string, _ environment.Override) error {
	name := filepath.Base(dir)
	r.mu.Lock()
	r.tested = append(r.tested, name)
	r.mu.Unlock()
	if err := r.testErr[name]; err != nil {
		return &runner.TestFailure{Err: err}
	}
	return nil
}

func testMatrix(names ...string) *matrix.Matrix {
	m := &matrix.Matrix{Library: "grudge"}
	for _, n := range names {
		m.Projects = append(m.Projects, matrix.Project{Name: n, URL: "https://example.com/" + n + ".git"})
	}
	return m
}

func newTestOrchestrator(t *testing.T, m *matrix.Matrix, c *fakeCloner, r *fakeRunner, parallel int) *Orchestrator {
	t.Helper()
	lib := t.TempDir()
	orch, err := New(Config{
		Matrix:           m,
		LibraryPath:      lib,
		RequirementsFile: "-",
		WorkDir:          t.TempDir(),
		Parallel:         parallel,
		Cloner:           c,
		Runner:           r,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func TestRun_AllPassed(t *testing.T) {
	cloner := &fakeCloner{}
	run := newFakeRunner()
	orch := newTestOrchestrator(t, testMatrix("alpha", "beta"), cloner, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.OK() {
		t.Errorf("report.OK() = false, results: %+v", report.Results)
	}
	if report.RunID == "" {
		t.Error("report needs a run ID")
	}
	for i, name := range []string{"alpha", "beta"} {
		if report.Results[i].Project != name || report.Results[i].Status != StatusPassed {
			t.Errorf("Results[%d] = %+v", i, report.Results[i])
		}
	}
}

func TestRun_CloneFailureDoesNotAbortMatrix(t *testing.T) {
	cloner := &fakeCloner{failWith: map[string]error{"beta": errors.New("connection reset")}}
	run := newFakeRunner()
	orch := newTestOrchestrator(t, testMatrix("alpha", "beta", "gamma"), cloner, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.OK() {
		t.Error("overall result must be failure")
	}
	statuses := map[string]Status{}
	for _, res := range report.Results {
		statuses[res.Project] = res.Status
	}
	want := map[string]Status{
		"alpha": StatusPassed,
		"beta":  StatusBuildError,
		"gamma": StatusPassed,
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if !strings.Contains(findResult(t, report, "beta").Detail, "connection reset") {
		t.Error("clone diagnostics must land in the result detail")
	}
}

func TestRun_TestFailureIsFailedNotBuildError(t *testing.T) {
	run := newFakeRunner()
	run.testErr["alpha"] = errors.New("3 failed, 120 passed")
	orch := newTestOrchestrator(t, testMatrix("alpha"), &fakeCloner{}, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Results[0].Status; got != StatusFailed {
		t.Errorf("Status = %q, want %q", got, StatusFailed)
	}
}

func TestRun_BuildFailureIsBuildError(t *testing.T) {
	run := newFakeRunner()
	run.buildErr["alpha"] = errors.New("compiler exploded")
	orch := newTestOrchestrator(t, testMatrix("alpha"), &fakeCloner{}, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Results[0].Status; got != StatusBuildError {
		t.Errorf("Status = %q, want %q", got, StatusBuildError)
	}
	if len(run.tested) != 0 {
		t.Error("tests must not run after a build failure")
	}
}

func TestRun_RewriteFailureIsBuildError(t *testing.T) {
	// Manifest never mentions grudge: redirection has no target.
	cloner := &fakeCloner{manifests: map[string]string{"alpha": "numpy\n"}}
	run := newFakeRunner()
	orch := newTestOrchestrator(t, testMatrix("alpha"), cloner, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := report.Results[0]
	if res.Status != StatusBuildError {
		t.Errorf("Status = %q, want %q", res.Status, StatusBuildError)
	}
	if !strings.Contains(res.Detail, "grudge") {
		t.Errorf("detail should name the missing library, got %q", res.Detail)
	}
	if len(run.built) != 0 {
		t.Error("build must not run after a rewrite failure")
	}
}

func TestRun_RewritesManifestPerProjectEnvironment(t *testing.T) {
	cloner := &fakeCloner{manifests: map[string]string{
		"mirgecom": "grudge==2.3\nmpi4py>=3\n",
		"otherlib": "grudge==2.3\nmpi4py>=3\n",
	}}
	run := newFakeRunner()
	orch := newTestOrchestrator(t, testMatrix("mirgecom", "otherlib"), cloner, run, 1)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.OK() {
		t.Fatalf("results: %+v", report.Results)
	}

	if !strings.Contains(run.manifests["mirgecom"], "mpi4py") {
		t.Error("mirgecom keeps its MPI binding")
	}
	if strings.Contains(run.manifests["otherlib"], "mpi4py") {
		t.Error("otherlib must have mpi4py stripped")
	}
	for _, name := range []string{"mirgecom", "otherlib"} {
		if !strings.Contains(run.manifests[name], "grudge @ file://") {
			t.Errorf("%s manifest not redirected:\n%s", name, run.manifests[name])
		}
	}
	if run.overrides["mirgecom"].ParallelTests {
		t.Error("mirgecom must not test in parallel")
	}
	if got := run.overrides["otherlib"].TestFilter; got != environment.DefaultTestFilter {
		t.Errorf("otherlib filter = %q", got)
	}
}

func TestRun_ParallelPreservesResultOrder(t *testing.T) {
	names := []string{"p0", "p1", "p2", "p3", "p4", "p5"}
	run := newFakeRunner()
	run.testErr["p3"] = errors.New("flaky")
	orch := newTestOrchestrator(t, testMatrix(names...), &fakeCloner{}, run, 4)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, name := range names {
		if report.Results[i].Project != name {
			t.Fatalf("Results[%d].Project = %q, want %q", i, report.Results[i].Project, name)
		}
	}
	if report.OK() {
		t.Error("p3 failed; overall must fail")
	}
}

func TestNew_EmptyMatrixIsFatal(t *testing.T) {
	_, err := New(Config{
		Matrix:      &matrix.Matrix{Library: "grudge"},
		LibraryPath: ".",
		Cloner:      &fakeCloner{},
		Runner:      newFakeRunner(),
	})
	if !errors.Is(err, matrix.ErrEmptyMatrix) {
		t.Errorf("want ErrEmptyMatrix, got %v", err)
	}
}

func TestReport_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		ok       bool
	}{
		{"empty", nil, true},
		{"all passed", []Status{StatusPassed, StatusPassed}, true},
		{"one failed", []Status{StatusPassed, StatusFailed}, false},
		{"one build error", []Status{StatusBuildError, StatusPassed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{}
			for i, s := range tt.statuses {
				r.Results = append(r.Results, RunResult{Project: fmt.Sprintf("p%d", i), Status: s})
			}
			if got := r.OK(); got != tt.ok {
				t.Errorf("OK() = %v, want %v", got, tt.ok)
			}
		})
	}
}

func findResult(t *testing.T, r *Report, project string) RunResult {
	t.Helper()
	for _, res := range r.Results {
		if res.Project == project {
			return res
		}
	}
	t.Fatalf("no result for %q", project)
	return RunResult{}
}
