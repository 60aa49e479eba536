package proofdoc

import "github.com/proofdoc/rocq-proofdoc/internal/rocq"

// session.go — the CheckerSession capability boundary this package treats
// as an external given. *rocq.CheckerClient satisfies this; unit tests
// satisfy it with a fake so the engine's tests never spawn a real coq-lsp
// process.
type CheckerSession interface {
	DidOpen(uri, text string) error
	DidChange(uri string, version int, text string) error
	DidClose(uri string) error
	ProofGoals(uri string, version int, pos rocq.Position) (*rocq.GoalSnapshot, error)
	GetDocument(uri string) (*rocq.FlecheDocument, error)
	SaveVo(uri string) error
	Diagnostics(uri string) []rocq.Diagnostic
	Shutdown() error
}

var _ CheckerSession = (*rocq.CheckerClient)(nil)
