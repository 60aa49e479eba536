package rocq

// format.go — human-readable rendering of goal snapshots and diagnostics.

import (
	"fmt"
	"strings"
)

// FormatGoals renders a goal snapshot: goal count, each goal's hypotheses
// and conclusion, then shelved/given-up counts.
func FormatGoals(g *GoalSnapshot) string {
	if g == nil || len(g.Goals) == 0 {
		return "No goals.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d goal(s)\n", len(g.Goals))
	for i, goal := range g.Goals {
		fmt.Fprintf(&sb, "Goal %d:\n", i+1)
		for _, h := range goal.Hyps {
			fmt.Fprintf(&sb, "  %s : %s\n", strings.Join(h.Names, ", "), h.Ty)
		}
		fmt.Fprintf(&sb, "  ---------------------------\n  %s\n", goal.Ty)
	}
	if len(g.Shelf) > 0 {
		fmt.Fprintf(&sb, "shelved: %d\n", len(g.Shelf))
	}
	if len(g.GivenUp) > 0 {
		fmt.Fprintf(&sb, "given up: %d\n", len(g.GivenUp))
	}
	return sb.String()
}

// SeverityName maps an LSP diagnostic severity level to its lowercase name.
func SeverityName(sev int) string {
	switch sev {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// FormatDiagnostics renders a diagnostics slice one line per entry.
func FormatDiagnostics(diags []Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&sb, "[%s] %d:%d-%d:%d: %s\n", SeverityName(d.Severity),
			d.Range.Start.Line, d.Range.Start.Character,
			d.Range.End.Line, d.Range.End.Character, d.Message)
	}
	if sb.Len() == 0 {
		return "(no diagnostics)\n"
	}
	return sb.String()
}
