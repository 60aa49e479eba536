package main

// serve.go — the "serve" subcommand: runs the MCP server over stdio,
// wiring the Facade surface (internal/proofdoc.ProofFile) to MCP tools via
// a Manager so more than one file can be tracked concurrently.

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagBinary     string
	flagDebug      bool
	flagPrelude    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proof-document MCP server over stdio",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a YAML config file overriding checker init options and timeout")
	serveCmd.Flags().StringVar(&flagBinary, "binary", "", "override the coq-lsp binary name/path")
	serveCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging and the checker's debug init option")
	serveCmd.Flags().BoolVar(&flagPrelude, "prelude", false, "run Phase A prelude discovery (harvest library terms) on open")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := rocq.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}
	if flagBinary != "" {
		cfg.Binary = flagBinary
	}
	if flagDebug {
		cfg.InitOptions.Debug = true
	}
	log := rocq.NewLogger(flagDebug)

	mgr := NewManager(cfg, log, flagPrelude)
	defer mgr.Shutdown()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "proofdoc-mcp",
		Version: "0.1.0",
	}, nil)
	registerTools(server, mgr)

	return server.Run(context.Background(), &mcp.StdioTransport{})
}
