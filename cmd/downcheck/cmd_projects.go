package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"downcheck/internal/environment"
	"downcheck/internal/matrix"
)

var projectsFlags struct {
	matrixPath string
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the configured downstream projects and their environments",
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsFlags.matrixPath, "matrix", "", "Matrix YAML path (default: embedded matrix)")
}

func runProjects(cmd *cobra.Command, _ []string) error {
	m, err := matrix.Load(projectsFlags.matrixPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Library: %s\n\n", m.Library)
	for _, p := range m.Projects {
		ov := environment.Resolve(p.Name)
		fmt.Fprintf(out, "%s\n", p.Name)
		fmt.Fprintf(out, "  url:            %s\n", p.URL)
		if p.Branch != "" {
			fmt.Fprintf(out, "  branch:         %s\n", p.Branch)
		}
		fmt.Fprintf(out, "  manifest:       %s\n", p.ManifestPath())
		fmt.Fprintf(out, "  test filter:    %s\n", ov.TestFilter)
		fmt.Fprintf(out, "  parallel tests: %v\n", ov.ParallelTests)
		if len(ov.SystemPackages) > 0 {
			fmt.Fprintf(out, "  packages:       %s\n", strings.Join(ov.SystemPackages, ", "))
		}
		if len(ov.Env) > 0 {
			fmt.Fprintf(out, "  env vars:       %d\n", len(ov.Env))
		}
		if len(ov.DropDependencies) > 0 {
			fmt.Fprintf(out, "  drops:          %s\n", strings.Join(ov.DropDependencies, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
