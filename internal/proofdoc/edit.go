package proofdoc

import (
	"fmt"
	"strings"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

// edit.go — the transactional edit protocol: snapshot, splice, resync,
// validate, re-derive, or roll back.

// EditOp is one operation in a change_steps batch.
type EditOp struct {
	isDelete bool
	index    int // Delete: step to remove. Add: step to insert after.
	text     string
}

// AddOp builds an Add{index, text} batch operation.
func AddOp(index int, text string) EditOp { return EditOp{index: index, text: text} }

// DeleteOp builds a Delete{index} batch operation.
func DeleteOp(index int) EditOp { return EditOp{isDelete: true, index: index} }

// snapshot captures everything EditEngine must be able to restore verbatim
// on rollback.
type snapshot struct {
	source      string
	version     int
	stepCount   int
	diagSig     string
	proofCount  int
	openCount   int
	stepsTaken  int
}

func (pf *ProofFile) takeSnapshot() snapshot {
	return snapshot{
		source:     pf.source,
		version:    pf.version,
		stepCount:  len(pf.steps),
		diagSig:    diagnosticsSignature(pf.session.Diagnostics(pf.uri)),
		proofCount: len(pf.tracker.Proofs()),
		openCount:  len(pf.tracker.OpenProofs()),
		stepsTaken: pf.stepsTaken,
	}
}

// diagnosticsSignature summarizes a diagnostics slice for the structural
// equality check a rollback must satisfy.
func diagnosticsSignature(diags []rocq.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&b, "%d:%d:%d-%d:%d:%s;",
			d.Severity, d.Range.Start.Line, d.Range.Start.Character,
			d.Range.End.Line, d.Range.End.Character, d.Message)
	}
	return b.String()
}

// AddSpan records where one Add op's text landed in a buildTargetText
// result, as a half-open byte range [Start, End) into the returned string.
type AddSpan struct {
	Start int
	End   int
}

// buildTargetText deterministically reconstructs the full document text for
// an ordered batch of operations: deletes are applied in ascending index
// order against the CURRENT (pre-batch) step numbering first, then adds are
// spliced into the resulting text in the order given. It also returns the
// byte span each Add op's text occupies in the result, so the caller can
// confirm after re-segmentation that each insertion still lands on its own
// step boundary rather than bleeding into a neighboring step.
func buildTargetText(steps []Step, ops []EditOp) (string, []AddSpan, error) {
	keep := make([]bool, len(steps))
	for i := range keep {
		keep[i] = true
	}
	var deletes []EditOp
	var adds []EditOp
	for _, op := range ops {
		if op.isDelete {
			deletes = append(deletes, op)
		} else {
			adds = append(adds, op)
		}
	}
	for _, d := range deletes {
		if d.index < 0 || d.index >= len(steps) {
			return "", nil, newErr(ErrInvalidChange, "delete index %d out of range", d.index)
		}
		keep[d.index] = false
	}

	// Build the post-delete text plus a mapping from original step index to
	// its offset in that text, so adds (expressed against original indices)
	// splice at the right point regardless of what was deleted around them.
	type segment struct {
		text        string
		originalIdx int
	}
	var segments []segment
	for i, s := range steps {
		if keep[i] {
			segments = append(segments, segment{text: s.Text, originalIdx: i})
		}
	}

	insertAfter := make(map[int][]*EditOp)
	for i := range adds {
		a := &adds[i]
		if a.index < -1 || a.index >= len(steps) {
			return "", nil, newErr(ErrInvalidChange, "add index %d out of range", a.index)
		}
		insertAfter[a.index] = append(insertAfter[a.index], a)
	}

	spans := make(map[*EditOp]AddSpan)
	var out []byte
	writeAdds := func(idx int) {
		for _, a := range insertAfter[idx] {
			start := len(out)
			out = append(out, a.text...)
			spans[a] = AddSpan{Start: start, End: len(out)}
		}
	}
	writeAdds(-1)
	for _, seg := range segments {
		out = append(out, seg.text...)
		writeAdds(seg.originalIdx)
	}

	result := make([]AddSpan, len(adds))
	for i := range adds {
		result[i] = spans[&adds[i]]
	}
	return string(out), result, nil
}
