package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"downcheck/internal/display"
	"downcheck/internal/gitclone"
	"downcheck/internal/matrix"
	"downcheck/internal/metrics"
	"downcheck/internal/pipeline"
	"downcheck/internal/runner"
)

var runFlags struct {
	matrixPath   string
	libraryPath  string
	requirements string
	workDir      string
	parallel     int
	projects     []string
	keepWorkDir  bool
	jsonOut      string
	metricsOut   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the downstream compatibility matrix",
	Long: `Run clones every configured downstream project, rewrites its dependency
manifest to consume the local library checkout, builds it, and runs its
filtered test suite. The command exits non-zero unless every project passes.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.matrixPath, "matrix", "", "Matrix YAML path (default: embedded matrix)")
	f.StringVar(&runFlags.libraryPath, "library-path", ".", "Local checkout of the library under test")
	f.StringVar(&runFlags.requirements, "requirements", "", "Library requirements file for VCS propagation, relative to --library-path (default requirements.txt, '-' disables)")
	f.StringVar(&runFlags.workDir, "workdir", "", "Working directory for clones (default: temp dir)")
	f.IntVar(&runFlags.parallel, "parallel", 1, "Number of concurrent project pipelines (1 = serial)")
	f.StringArrayVar(&runFlags.projects, "project", nil, "Run only the named project (repeatable)")
	f.BoolVar(&runFlags.keepWorkDir, "keep-workdir", false, "Keep clones and rewritten manifests for triage")
	f.StringVar(&runFlags.jsonOut, "json", "", "Write the run report as JSON to this path")
	f.StringVar(&runFlags.metricsOut, "metrics-out", "", "Write a Prometheus textfile-collector snapshot to this path")
}

func runRun(cmd *cobra.Command, _ []string) error {
	m, err := matrix.Load(runFlags.matrixPath)
	if err != nil {
		return err
	}
	m, err = m.Select(runFlags.projects)
	if err != nil {
		return err
	}

	orch, err := pipeline.New(pipeline.Config{
		Matrix:           m,
		LibraryPath:      runFlags.libraryPath,
		RequirementsFile: runFlags.requirements,
		WorkDir:          runFlags.workDir,
		Parallel:         runFlags.parallel,
		KeepWorkDir:      runFlags.keepWorkDir,
		Cloner:           gitclone.ExecCloner{},
		Runner: runner.ExecRunner{
			BuildCommand: m.BuildCommand,
			TestCommand:  m.TestCommand,
			Stdout:       cmd.OutOrStdout(),
			Stderr:       cmd.ErrOrStderr(),
		},
	})
	if err != nil {
		return err
	}

	report, err := orch.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, display.Summary(report))

	if runFlags.jsonOut != "" {
		if err := report.WriteJSON(runFlags.jsonOut); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report: %s\n", runFlags.jsonOut)
	}
	if runFlags.metricsOut != "" {
		rec := metrics.NewRecorder()
		rec.Observe(report)
		if err := rec.WriteTextfile(runFlags.metricsOut); err != nil {
			return err
		}
		fmt.Fprintf(out, "Metrics: %s\n", runFlags.metricsOut)
	}

	if !report.OK() {
		failed := report.Failed()
		return fmt.Errorf("%d of %d downstream project(s) did not pass", len(failed), len(report.Results))
	}
	return nil
}
