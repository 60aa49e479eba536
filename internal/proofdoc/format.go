package proofdoc

// format.go — human-readable rendering of Steps, Proofs, and Terms, shared
// by the MCP tool layer (root package main) and cmd/proof-trace so neither
// binary duplicates this logic.

import (
	"fmt"
	"strings"
)

// FormatSteps renders a step sequence, one line per step: index, range,
// and trimmed text.
func FormatSteps(steps []Step) string {
	var sb strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&sb, "[%d] %d:%d-%d:%d %q\n", s.Index,
			s.Range.Start.Line, s.Range.Start.Character,
			s.Range.End.Line, s.Range.End.Character, strings.TrimSpace(s.Text))
	}
	if sb.Len() == 0 {
		return "(no steps)\n"
	}
	return sb.String()
}

// FormatProofs renders a proof list: term name, open/closed status, step
// range, and program attribution if any.
func FormatProofs(proofs []*Proof) string {
	var sb strings.Builder
	for _, p := range proofs {
		status := "closed"
		if p.IsOpen {
			status = "open"
		}
		fmt.Fprintf(&sb, "%s [%s] steps %d-%d (%d steps)", p.Term.Text, status, p.StartStep, p.EndStep, len(p.Steps))
		if p.Program != nil {
			fmt.Fprintf(&sb, " obligation of %s", p.Program.Text)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(no proofs)\n"
	}
	return sb.String()
}

// FormatContext renders a term list: qualified name and kind.
func FormatContext(terms []*Term) string {
	var sb strings.Builder
	for _, t := range terms {
		fmt.Fprintf(&sb, "%s (%s)\n", t.QualifiedName(), t.Kind)
	}
	if sb.Len() == 0 {
		return "(empty context)\n"
	}
	return sb.String()
}
