// Command proofdoc-mcp wraps the incremental proof-document engine
// (internal/proofdoc) as an MCP tool server fronting a coq-lsp process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "proofdoc-mcp",
	Short: "Incremental, edit-aware proof-document engine for Rocq, as an MCP server",
	Long: `proofdoc-mcp fronts a coq-lsp process with an incremental,
edit-aware view over a proof source file: enumerate its proofs and their
steps, inspect goal state and dependencies, and transactionally edit the
file with automatic rollback on failure.

  proofdoc-mcp serve            - run the MCP server over stdio`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
