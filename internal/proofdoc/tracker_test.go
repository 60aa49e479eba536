package proofdoc

import (
	"testing"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

func newTestTracker() (*ProofTracker, *ContextStore) {
	store := NewContextStore()
	resolver := &ContextResolver{Store: store}
	session := newFakeSession()
	return NewProofTracker(store, resolver, session, "file:///f.v", 1), store
}

func theoremOpener(name string) Step {
	return Step{Ast: astTag("VernacStartTheoremProof", astId(name))}
}

func tacticStep(text string) Step {
	return Step{Text: text, Ast: astTag("VernacExtend", astStr(text))}
}

func endProof() Step {
	return Step{Ast: astTag("VernacEndProof", astStr("Qed"))}
}

func TestProofTrackerClosesSimpleProof(t *testing.T) {
	tr, _ := newTestTracker()
	steps := []Step{
		theoremOpener("plus_O_n"),
		{Ast: astTag("VernacProof")},
		tacticStep("intros n."),
		endProof(),
	}
	for i, s := range steps {
		if err := tr.ProcessStep(i, s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	proofs := tr.Proofs()
	if len(proofs) != 1 {
		t.Fatalf("expected 1 closed proof, got %d", len(proofs))
	}
	if len(tr.OpenProofs()) != 0 {
		t.Fatalf("expected 0 open proofs, got %d", len(tr.OpenProofs()))
	}
	if len(proofs[0].Steps) != 2 {
		t.Fatalf("expected 2 proof steps (tactic,terminator; opener excluded), got %d", len(proofs[0].Steps))
	}
}

func TestProofTrackerNestedOpenProofsOrdering(t *testing.T) {
	tr, _ := newTestTracker()
	steps := []Step{
		theoremOpener("a"),
		theoremOpener("b"),
		theoremOpener("c"),
		endProof(), // closes c
	}
	for i, s := range steps {
		if err := tr.ProcessStep(i, s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	open := tr.OpenProofs()
	if len(open) != 2 {
		t.Fatalf("expected 2 open proofs, got %d", len(open))
	}
	if open[0].Term.Text != "b" {
		t.Fatalf("expected newest-first ordering (b), got %s", open[0].Term.Text)
	}
	if len(tr.Proofs()) != 1 || tr.Proofs()[0].Term.Text != "c" {
		t.Fatalf("expected c closed, got %+v", tr.Proofs())
	}
}

func TestProofTrackerModuleTypeMarksNonExportable(t *testing.T) {
	tr, store := newTestTracker()
	_ = store
	steps := []Step{
		{Ast: astTag("VernacDeclareModuleType", astId("Sig"))},
		theoremOpener("spec_thm"),
		endProof(),
		{Ast: astTag("VernacEndSegment", astId("Sig"))},
	}
	for i, s := range steps {
		if err := tr.ProcessStep(i, s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if len(tr.Proofs()) != 0 {
		t.Fatalf("expected Module Type proof filtered out, got %d", len(tr.Proofs()))
	}
	if len(tr.closed) != 1 || !tr.closed[0].NonExport {
		t.Fatalf("expected closed proof marked NonExport")
	}
}

func TestProofTrackerGoalsSnapshotCaptured(t *testing.T) {
	store := NewContextStore()
	resolver := &ContextResolver{Store: store}
	session := newFakeSession()
	uri := "file:///f.v"
	wantPos := pos(1, 0)
	session.goals[goalKey(uri, wantPos)] = &rocq.GoalSnapshot{Goals: []rocq.Goal{{Ty: "True"}}}

	tr := NewProofTracker(store, resolver, session, uri, 1)
	steps := []Step{
		theoremOpener("t"),
		{Ast: astTag("VernacProof")},
		{Range: rng(1, 0, 1, 6), Ast: astTag("VernacExtend", astStr("trivial."))},
		endProof(),
	}
	for i, s := range steps {
		if err := tr.ProcessStep(i, s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	proof := tr.Proofs()[0]
	if proof.Steps[0].GoalsBefore == nil || len(proof.Steps[0].GoalsBefore.Goals) != 1 {
		t.Fatalf("expected captured goal snapshot, got %+v", proof.Steps[0].GoalsBefore)
	}
}
