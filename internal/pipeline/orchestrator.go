// Package pipeline drives the downstream compatibility matrix: for each
// configured project it clones the repository, resolves the project's
// environment, rewrites the dependency manifest against the local library
// checkout, builds, and runs the filtered test suite, recording one
// RunResult per project. A broken project never aborts the rest of the
// matrix.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"downcheck/internal/environment"
	"downcheck/internal/gitclone"
	"downcheck/internal/logging"
	"downcheck/internal/manifest"
	"downcheck/internal/matrix"
	"downcheck/internal/runner"
)

// Config wires an Orchestrator. Matrix, LibraryPath, Cloner and Runner are
// required; the rest default sensibly.
type Config struct {
	Matrix      *matrix.Matrix
	LibraryPath string // local checkout of the library under test

	// RequirementsFile is the library's own requirements file, relative to
	// LibraryPath, whose VCS lines are propagated into downstream
	// manifests. Empty means requirements.txt; set to "-" to disable.
	RequirementsFile string

	// WorkDir hosts the per-project clones. Empty means a fresh temp dir.
	WorkDir string

	// Parallel bounds concurrent project pipelines; <1 means serial.
	// Projects are independent, so this only trades wall-clock for load.
	Parallel int

	// KeepWorkDir leaves clones and rewritten manifests on disk for triage.
	KeepWorkDir bool

	Cloner gitclone.Cloner
	Runner runner.Runner
}

// Orchestrator runs the matrix. Construct with New.
type Orchestrator struct {
	cfg Config
}

// New validates the configuration. An empty matrix is the one fatal
// configuration error; everything downstream is per-project.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Matrix == nil || len(cfg.Matrix.Projects) == 0 {
		return nil, matrix.ErrEmptyMatrix
	}
	if cfg.LibraryPath == "" {
		return nil, errors.New("pipeline: library checkout path is required")
	}
	if cfg.Cloner == nil {
		return nil, errors.New("pipeline: cloner is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("pipeline: runner is required")
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run executes every project pipeline exactly once and aggregates the
// results. The returned error covers only run-level breakage (workdir
// setup); per-project failures land in the report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	logger := logging.New("pipeline")

	workDir := o.cfg.WorkDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "downcheck-*")
		if err != nil {
			return nil, fmt.Errorf("create workdir: %w", err)
		}
		workDir = tmp
	}
	if !o.cfg.KeepWorkDir {
		defer os.RemoveAll(workDir)
	}

	limit := o.cfg.Parallel
	if limit < 1 {
		limit = 1
	}

	started := time.Now()
	projects := o.cfg.Matrix.Projects
	results := make([]RunResult, len(projects))

	logger.Info("starting matrix",
		"library", o.cfg.Matrix.Library, "projects", len(projects), "parallel", limit)

	// Project pipelines share nothing: each works in its own clone, so the
	// only coordination is the worker limit. Failures are recorded in the
	// result slot, never returned, so one broken project cannot cancel the
	// group.
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, p := range projects {
		g.Go(func() error {
			results[i] = o.runProject(ctx, workDir, p)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		RunID:   uuid.NewString(),
		Library: o.cfg.Matrix.Library,
		Started: started,
		Elapsed: time.Since(started),
		Results: results,
	}
	for _, res := range report.Failed() {
		logger.Error("project did not pass", "project", res.Project, "status", string(res.Status), "detail", res.Detail)
	}
	logger.Info("matrix done", "ok", report.OK(), "elapsed", report.Elapsed)
	return report, nil
}

// runProject sequences one project: clone, select environment, rewrite
// manifest, build, test. Steps are strictly ordered; each consumes the
// previous step's output.
func (o *Orchestrator) runProject(ctx context.Context, workDir string, p matrix.Project) RunResult {
	logger := logging.New("pipeline")
	start := time.Now()

	fail := func(status Status, err error) RunResult {
		return RunResult{Project: p.Name, Status: status, Detail: err.Error(), Duration: time.Since(start)}
	}

	dest := filepath.Join(workDir, p.Name)
	if err := o.cfg.Cloner.Clone(ctx, p.URL, p.Branch, dest); err != nil {
		return fail(StatusBuildError, err)
	}

	ov := environment.Resolve(p.Name)

	manifestPath := filepath.Join(dest, p.ManifestPath())
	m, err := manifest.LoadFile(manifestPath)
	if err != nil {
		return fail(StatusBuildError, fmt.Errorf("%s: %w", p.Name, err))
	}

	rw := manifest.Rewriter{
		Library:       o.cfg.Matrix.Library,
		LocalPath:     o.cfg.LibraryPath,
		Drop:          ov.DropDependencies,
		PropagateFrom: o.libraryRequirements(),
	}
	if err := rw.Rewrite(m); err != nil {
		return fail(StatusBuildError, fmt.Errorf("%s: %w", p.Name, err))
	}
	if err := m.WriteFile(manifestPath); err != nil {
		return fail(StatusBuildError, fmt.Errorf("%s: %w", p.Name, err))
	}

	if err := o.cfg.Runner.Build(ctx, dest, ov, manifestPath); err != nil {
		return fail(StatusBuildError, fmt.Errorf("%s: %w", p.Name, err))
	}

	if err := o.cfg.Runner.RunTests(ctx, dest, ov); err != nil {
		return fail(StatusFailed, fmt.Errorf("%s: %w", p.Name, err))
	}

	logger.Info("project passed", "project", p.Name, "elapsed", time.Since(start))
	return RunResult{Project: p.Name, Status: StatusPassed, Duration: time.Since(start)}
}

func (o *Orchestrator) libraryRequirements() string {
	switch o.cfg.RequirementsFile {
	case "-":
		return ""
	case "":
		return filepath.Join(o.cfg.LibraryPath, "requirements.txt")
	default:
		return filepath.Join(o.cfg.LibraryPath, o.cfg.RequirementsFile)
	}
}
