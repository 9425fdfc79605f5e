// Package environment maps a downstream project name to the environment
// configuration its compatibility run needs: extra system packages,
// environment variables, the test filter expression, and which manifest
// dependencies to strip.
package environment

// Override is the per-project environment configuration. Resolve returns a
// fresh copy per call; callers may mutate their copy freely.
type Override struct {
	// SystemPackages are extra OS packages the build step must install.
	SystemPackages []string

	// Env is merged into the build/test process environment.
	Env map[string]string

	// TestFilter is the marker expression handed to the test runner.
	TestFilter string

	// ParallelTests enables parallel test execution. Disabled for projects
	// whose tests cannot be safely parallelized (MPI).
	ParallelTests bool

	// DropDependencies lists manifest dependencies to delete before the
	// build, matched by normalized distribution name.
	DropDependencies []string
}

// DefaultTestFilter excludes the marks no downstream run should hit by
// default: long-running tests, Octave-backed tests, and MPI tests.
const DefaultTestFilter = "not (slowtest or octave or mpi)"

// Default is the override every project gets unless the table below says
// otherwise: no extra packages, no env vars, the default filter, parallel
// tests on, and the MPI binding stripped from the manifest (projects that
// need it are the special cases).
func Default() Override {
	return Override{
		TestFilter:       DefaultTestFilter,
		ParallelTests:    true,
		DropDependencies: []string{"mpi4py"},
	}
}

// overrides is the static special-case table, keyed by project name.
// Functions rather than values so every resolution hands out fresh slices
// and maps. Keep this a table; do not grow an if-chain in Resolve.
var overrides = map[string]func() Override{
	// mirgecom runs distributed-memory solvers: it keeps its MPI binding,
	// needs an MPI runtime installed, and its tests cannot run under a
	// parallel test runner. Its filter still excludes slow/octave marks
	// but not mpi — it is the project permitted to use MPI.
	"mirgecom": func() Override {
		o := Default()
		o.SystemPackages = []string{"libopenmpi-dev", "openmpi-bin"}
		o.Env = map[string]string{
			"OMPI_ALLOW_RUN_AS_ROOT":         "1",
			"OMPI_ALLOW_RUN_AS_ROOT_CONFIRM": "1",
		}
		o.TestFilter = "not (slowtest or octave)"
		o.ParallelTests = false
		o.DropDependencies = nil
		return o
	},
}

// Resolve returns the override for a project name. The mapping is total:
// names without a special case get the default, so resolution never fails.
// Validating that a name belongs to the configured matrix is the matrix
// loader's job, not this package's.
func Resolve(name string) Override {
	if f, ok := overrides[name]; ok {
		return f()
	}
	return Default()
}
