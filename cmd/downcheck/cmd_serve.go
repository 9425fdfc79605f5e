package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"downcheck/internal/logging"
	"downcheck/internal/matrix"
	mcpserver "downcheck/internal/mcp"
	"downcheck/internal/pipeline"
)

var serveFlags struct {
	matrixPath  string
	libraryPath string
	workDir     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio for agent-driven runs",
	Long: `Starts an MCP server over stdin/stdout exposing run_matrix, list_projects
and get_report tools.

The server monitors for parent process death. When the MCP client
disconnects, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.matrixPath, "matrix", "", "Matrix YAML path (default: embedded matrix)")
	f.StringVar(&serveFlags.libraryPath, "library-path", ".", "Local checkout of the library under test")
	f.StringVar(&serveFlags.workDir, "workdir", "", "Working directory for clones (default: temp dir)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	m, err := matrix.Load(serveFlags.matrixPath)
	if err != nil {
		return err
	}

	srv := mcpserver.NewServer(pipeline.Config{
		Matrix:      m,
		LibraryPath: serveFlags.libraryPath,
		WorkDir:     serveFlags.workDir,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting downcheck MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
