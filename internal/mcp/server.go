// Package mcp exposes the compatibility matrix over the Model Context
// Protocol so agent tooling can trigger runs and read reports during CI
// triage.
package mcp

import (
	"context"
	"fmt"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"downcheck/internal/environment"
	"downcheck/internal/gitclone"
	"downcheck/internal/logging"
	"downcheck/internal/pipeline"
	"downcheck/internal/runner"
)

// Server wraps the MCP SDK server around one loaded matrix. Runs are
// serialized: a second run_matrix call while one is active is refused
// rather than queued, matching the one-shot CI posture.
type Server struct {
	MCPServer *sdkmcp.Server

	cfg pipeline.Config

	mu      sync.Mutex
	running bool
	last    *pipeline.Report
}

// NewServer creates an MCP server with matrix tools. cfg.Cloner and
// cfg.Runner may be nil; the exec implementations are used.
func NewServer(cfg pipeline.Config) *Server {
	if cfg.Cloner == nil {
		cfg.Cloner = gitclone.ExecCloner{}
	}
	if cfg.Runner == nil {
		cfg.Runner = runner.ExecRunner{
			BuildCommand: cfg.Matrix.BuildCommand,
			TestCommand:  cfg.Matrix.TestCommand,
		}
	}
	s := &Server{cfg: cfg}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "downcheck", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the configured downstream projects with their resolved environment overrides.",
	}, s.handleListProjects)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_matrix",
		Description: "Run the downstream compatibility matrix (optionally a subset) and return per-project results. Blocks until the run completes.",
	}, s.handleRunMatrix)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Return the most recent run report, if any.",
	}, s.handleGetReport)
}

// --- Tool input/output types ---

type projectInfo struct {
	Name             string            `json:"name"`
	URL              string            `json:"url"`
	SystemPackages   []string          `json:"system_packages,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	TestFilter       string            `json:"test_filter"`
	ParallelTests    bool              `json:"parallel_tests"`
	DropDependencies []string          `json:"drop_dependencies,omitempty"`
}

type listProjectsOutput struct {
	Library  string        `json:"library"`
	Projects []projectInfo `json:"projects"`
}

type runMatrixInput struct {
	Projects []string `json:"projects,omitempty" jsonschema:"subset of matrix project names; empty runs the full matrix"`
	Parallel int      `json:"parallel,omitempty" jsonschema:"number of concurrent project pipelines (default 1 = serial)"`
}

type runMatrixOutput struct {
	OK      bool                 `json:"ok"`
	RunID   string               `json:"run_id"`
	Results []pipeline.RunResult `json:"results"`
}

type getReportInput struct{}

type getReportOutput struct {
	Available bool             `json:"available"`
	Report    *pipeline.Report `json:"report,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleListProjects(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, listProjectsOutput, error) {
	out := listProjectsOutput{Library: s.cfg.Matrix.Library}
	for _, p := range s.cfg.Matrix.Projects {
		ov := environment.Resolve(p.Name)
		out.Projects = append(out.Projects, projectInfo{
			Name:             p.Name,
			URL:              p.URL,
			SystemPackages:   ov.SystemPackages,
			Env:              ov.Env,
			TestFilter:       ov.TestFilter,
			ParallelTests:    ov.ParallelTests,
			DropDependencies: ov.DropDependencies,
		})
	}
	return nil, out, nil
}

func (s *Server) handleRunMatrix(ctx context.Context, _ *sdkmcp.CallToolRequest, input runMatrixInput) (*sdkmcp.CallToolResult, runMatrixOutput, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, runMatrixOutput{}, fmt.Errorf("a matrix run is already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cfg := s.cfg
	sub, err := cfg.Matrix.Select(input.Projects)
	if err != nil {
		return nil, runMatrixOutput{}, err
	}
	cfg.Matrix = sub
	if input.Parallel > 0 {
		cfg.Parallel = input.Parallel
	}

	orch, err := pipeline.New(cfg)
	if err != nil {
		return nil, runMatrixOutput{}, err
	}

	logging.New("mcp").Info("run_matrix", "projects", len(sub.Projects), "parallel", cfg.Parallel)
	report, err := orch.Run(ctx)
	if err != nil {
		return nil, runMatrixOutput{}, fmt.Errorf("run matrix: %w", err)
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return nil, runMatrixOutput{OK: report.OK(), RunID: report.RunID, Results: report.Results}, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *sdkmcp.CallToolRequest, _ getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, getReportOutput{Available: false}, nil
	}
	return nil, getReportOutput{Available: true, Report: s.last}, nil
}
