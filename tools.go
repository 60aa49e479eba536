package main

// tools.go — MCP tool registration, one tool per ProofFile Facade
// operation.

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/proofdoc/rocq-proofdoc/internal/proofdoc"
)

type fileArg struct {
	File string `json:"file" jsonschema:"path to the .v file"`
}

type execArg struct {
	File string `json:"file" jsonschema:"path to the .v file"`
	N    int    `json:"n" jsonschema:"number of step boundaries to advance (positive) or retreat (negative)"`
}

type addStepArg struct {
	File      string `json:"file" jsonschema:"path to the .v file"`
	PrevIndex int    `json:"prev_index" jsonschema:"insert immediately after this step index"`
	Text      string `json:"text" jsonschema:"the new step's source text"`
}

type deleteStepArg struct {
	File  string `json:"file" jsonschema:"path to the .v file"`
	Index int    `json:"index" jsonschema:"step index to delete"`
}

type proofStepArg struct {
	File      string `json:"file" jsonschema:"path to the .v file"`
	StartStep int    `json:"start_step" jsonschema:"the proof's opener step index, as returned by rocq_proofs/rocq_open_proofs"`
	Text      string `json:"text" jsonschema:"the step or replacement body text"`
}

type popStepArg struct {
	File      string `json:"file" jsonschema:"path to the .v file"`
	StartStep int    `json:"start_step" jsonschema:"the proof's opener step index"`
}

type changeOpArg struct {
	Delete bool   `json:"delete" jsonschema:"true for a Delete op, false for an Add op"`
	Index  int    `json:"index" jsonschema:"Delete: step to remove. Add: step to insert after."`
	Text   string `json:"text,omitempty" jsonschema:"Add op's new step text; ignored for Delete"`
}

type changeStepsArg struct {
	File string        `json:"file" jsonschema:"path to the .v file"`
	Ops  []changeOpArg `json:"ops" jsonschema:"ordered batch of Add/Delete operations, applied atomically"`
}

// registerTools registers the full Facade surface as MCP tools on server,
// dispatching through mgr.
func registerTools(server *mcp.Server, mgr *Manager) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_open",
		Description: "Open a .v proof source file and start tracking it. Must be called before any other rocq_* tool on that file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Open(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(summarizeOpen(pf)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_close",
		Description: "Close a tracked file and release its checker session.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		if err := mgr.Close(args.File); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult("closed " + args.File), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_run",
		Description: "Advance the tracked file to the end, without modifying source text.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.Run(); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatStepsTaken(pf)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_steps",
		Description: "List every step in the tracked file: index, range, and text.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_proofs",
		Description: "List every closed, exportable proof: its term, step range, and program attribution.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatProofs(pf.Proofs())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_open_proofs",
		Description: "List currently open (unterminated) proofs, newest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatProofs(pf.OpenProofs())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_diagnostics",
		Description: "Show the current diagnostics snapshot for the tracked file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatDiagnostics(pf.Diagnostics())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_current_goals",
		Description: "Show the goal state at the position Exec/rocq_exec last reached.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		goals, err := pf.CurrentGoals()
		if err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatGoals(goals)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_context",
		Description: "List every term currently indexed in the file's ContextStore.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		store := pf.Context()
		terms := make([]*proofdoc.Term, 0, len(store.Terms))
		for _, t := range store.Terms {
			terms = append(terms, t)
		}
		return TextResult(formatContext(terms)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_exec",
		Description: "Advance (n>0) or retreat (n<0) the tracked position by n step boundaries, without modifying source text.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args execArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.Exec(args.N); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatStepsTaken(pf)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_add_step",
		Description: "Insert text as a new step immediately after prev_index. Rolled back automatically if it breaks checking.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addStepArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.AddStep(args.PrevIndex, args.Text); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_delete_step",
		Description: "Remove the step at index. Rolled back automatically if it breaks checking.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deleteStepArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.DeleteStep(args.Index); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_append_step",
		Description: "Append text as the new last step of the proof opening at start_step.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args proofStepArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		proof, err := findProof(pf, args.StartStep)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.AppendStep(proof, args.Text); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_pop_step",
		Description: "Remove the last step of the proof opening at start_step.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args popStepArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		proof, err := findProof(pf, args.StartStep)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.PopStep(proof); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_change_steps",
		Description: "Apply an ordered batch of Add/Delete step operations atomically.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args changeStepsArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		ops := make([]proofdoc.EditOp, len(args.Ops))
		for i, o := range args.Ops {
			if o.Delete {
				ops[i] = proofdoc.DeleteOp(o.Index)
			} else {
				ops[i] = proofdoc.AddOp(o.Index, o.Text)
			}
		}
		if err := pf.ChangeSteps(ops...); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_change_proof",
		Description: "Replace the entire body (between opener and terminator) of the proof opening at start_step with text, as a single transaction.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args proofStepArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		proof, err := findProof(pf, args.StartStep)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.ChangeProof(proof, args.Text); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult(formatSteps(pf.Steps())), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rocq_save_vo",
		Description: "Ask the checker to compile and persist a .vo artifact for the tracked file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fileArg) (*mcp.CallToolResult, any, error) {
		pf, err := mgr.Get(args.File)
		if err != nil {
			return ErrResult(err), nil, nil
		}
		if err := pf.SaveVo(); err != nil {
			return ErrResult(err), nil, nil
		}
		return TextResult("saved .vo for " + args.File), nil, nil
	})
}

func summarizeOpen(pf *proofdoc.ProofFile) string {
	return formatProofs(pf.Proofs()) + formatProofs(pf.OpenProofs())
}

func formatStepsTaken(pf *proofdoc.ProofFile) string {
	return fmtStepsTaken(pf.StepsTaken(), len(pf.Steps()))
}

func fmtStepsTaken(taken, total int) string {
	return "steps_taken: " + itoaSimple(taken) + "/" + itoaSimple(total) + "\n"
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
