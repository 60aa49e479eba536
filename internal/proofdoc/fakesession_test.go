package proofdoc

import "github.com/proofdoc/rocq-proofdoc/internal/rocq"

// fakeSession is a CheckerSession double the unit tests drive without
// spawning coq-lsp; no test in this repository exercises the real
// subprocess.
type fakeSession struct {
	docs        map[string]*rocq.FlecheDocument
	diagnostics map[string][]rocq.Diagnostic
	goals       map[string]*rocq.GoalSnapshot // keyed by uri+"@"+line
	opened      map[string]string
	closed      []string
	shutdown    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		docs:        make(map[string]*rocq.FlecheDocument),
		diagnostics: make(map[string][]rocq.Diagnostic),
		goals:       make(map[string]*rocq.GoalSnapshot),
		opened:      make(map[string]string),
	}
}

func (f *fakeSession) DidOpen(uri, text string) error {
	f.opened[uri] = text
	return nil
}

func (f *fakeSession) DidChange(uri string, version int, text string) error {
	f.opened[uri] = text
	return nil
}

func (f *fakeSession) DidClose(uri string) error {
	f.closed = append(f.closed, uri)
	return nil
}

func (f *fakeSession) ProofGoals(uri string, version int, pos rocq.Position) (*rocq.GoalSnapshot, error) {
	snap, ok := f.goals[goalKey(uri, pos)]
	if !ok {
		return &rocq.GoalSnapshot{}, nil
	}
	return snap, nil
}

func (f *fakeSession) GetDocument(uri string) (*rocq.FlecheDocument, error) {
	doc, ok := f.docs[uri]
	if !ok {
		return &rocq.FlecheDocument{}, nil
	}
	return doc, nil
}

func (f *fakeSession) SaveVo(uri string) error { return nil }

func (f *fakeSession) Diagnostics(uri string) []rocq.Diagnostic {
	return f.diagnostics[uri]
}

func (f *fakeSession) Shutdown() error {
	f.shutdown = true
	return nil
}

func goalKey(uri string, pos rocq.Position) string {
	return uri + "@" + itoa(pos.Line) + ":" + itoa(pos.Character)
}

func itoa(n int) string {
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
