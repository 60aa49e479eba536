package proofdoc

import (
	"testing"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

func textSteps(texts ...string) []Step {
	steps := make([]Step, len(texts))
	for i, txt := range texts {
		steps[i] = Step{Text: txt, Index: i}
	}
	return steps
}

func TestBuildTargetTextDelete(t *testing.T) {
	steps := textSteps("a", "b", "c")
	got, _, err := buildTargetText(steps, []EditOp{DeleteOp(1)})
	if err != nil {
		t.Fatalf("buildTargetText: %v", err)
	}
	if got != "ac" {
		t.Fatalf("expected \"ac\", got %q", got)
	}
}

func TestBuildTargetTextAdd(t *testing.T) {
	steps := textSteps("a", "b", "c")
	got, spans, err := buildTargetText(steps, []EditOp{AddOp(1, "X")})
	if err != nil {
		t.Fatalf("buildTargetText: %v", err)
	}
	if got != "abXc" {
		t.Fatalf("expected \"abXc\", got %q", got)
	}
	if len(spans) != 1 || spans[0] != (AddSpan{Start: 2, End: 3}) {
		t.Fatalf("unexpected add span: %+v", spans)
	}
}

func TestBuildTargetTextAddThenDeleteIsNoOp(t *testing.T) {
	// add_step(i, t); delete_step(i+1) should reconstruct the original text.
	steps := textSteps("a", "b", "c")
	withAdd, _, err := buildTargetText(steps, []EditOp{AddOp(1, "X")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if withAdd != "abXc" {
		t.Fatalf("unexpected intermediate: %q", withAdd)
	}
	// Re-segmenting "abXc" would place X as its own step at index 2; deleting
	// it restores the original sequence.
	reSteps := textSteps("a", "b", "X", "c")
	restored, _, err := buildTargetText(reSteps, []EditOp{DeleteOp(2)})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if restored != "abc" {
		t.Fatalf("expected round-trip to \"abc\", got %q", restored)
	}
}

func TestBuildTargetTextOutOfRangeRejected(t *testing.T) {
	steps := textSteps("a", "b")
	if _, _, err := buildTargetText(steps, []EditOp{DeleteOp(5)}); err == nil {
		t.Fatalf("expected out-of-range delete to be rejected")
	}
}

func TestDiagnosticsSignatureStructuralEquality(t *testing.T) {
	a := []rocq.Diagnostic{{Severity: 1, Message: "boom", Range: rng(0, 0, 0, 3)}}
	b := []rocq.Diagnostic{{Severity: 1, Message: "boom", Range: rng(0, 0, 0, 3)}}
	if diagnosticsSignature(a) != diagnosticsSignature(b) {
		t.Fatalf("expected identical signatures for structurally equal diagnostics")
	}
	c := []rocq.Diagnostic{{Severity: 1, Message: "different", Range: rng(0, 0, 0, 3)}}
	if diagnosticsSignature(a) == diagnosticsSignature(c) {
		t.Fatalf("expected different signatures for different messages")
	}
}
