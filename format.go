package main

// format.go — MCP-result wrapping around the shared rendering helpers in
// internal/proofdoc and internal/rocq.

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/proofdoc/rocq-proofdoc/internal/proofdoc"
	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

// TextResult wraps a string in an MCP CallToolResult.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrResult wraps an error in an MCP CallToolResult.
func ErrResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func formatSteps(steps []proofdoc.Step) string        { return proofdoc.FormatSteps(steps) }
func formatProofs(proofs []*proofdoc.Proof) string     { return proofdoc.FormatProofs(proofs) }
func formatContext(terms []*proofdoc.Term) string      { return proofdoc.FormatContext(terms) }
func formatGoals(g *rocq.GoalSnapshot) string          { return rocq.FormatGoals(g) }
func formatDiagnostics(diags []rocq.Diagnostic) string { return rocq.FormatDiagnostics(diags) }
