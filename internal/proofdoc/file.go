package proofdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
	"go.uber.org/zap"
)

// file.go — ProofFile: the public Facade that wires together Segmenter,
// ContextStore, ContextResolver, ProofTracker, and EditEngine over one
// CheckerSession — the single user-facing object the rest of this package
// is built around.

// Options configures Open.
type Options struct {
	Timeout       time.Duration
	Workspace     string
	Config        rocq.Config
	NewSession    NewSessionFunc
	EnablePrelude bool
	Logger        *zap.SugaredLogger
}

// ProofFile is the incremental, edit-aware view over one tracked source
// file.
type ProofFile struct {
	session CheckerSession
	uri     string
	path    string
	version int
	source  string

	steps    []Step
	store    *ContextStore
	resolver *ContextResolver
	tracker  *ProofTracker
	aux      *AuxDoc

	newSession NewSessionFunc
	cfg        rocq.Config
	log        *zap.SugaredLogger

	stepsTaken int // index into steps the facade currently exposes, via exec()
	valid      bool
}

// Open constructs a ProofFile: starts a checker session, opens path,
// validates the initial document, segments it, discovers the prelude (if
// enabled), and tracks every step. Returns InvalidFile if the initial
// document already carries an Error diagnostic.
func Open(path string, opts Options) (*ProofFile, error) {
	if opts.NewSession == nil {
		return nil, newErr(ErrServerQuit, "Options.NewSession is required")
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(ErrInvalidFile, err, "read %s", path)
	}

	workspace := opts.Workspace
	if workspace == "" {
		workspace = filepath.Dir(path)
	}
	rootURI := "file://" + workspace
	session, err := opts.NewSession(rootURI)
	if err != nil {
		return nil, wrapErr(ErrServerQuit, err, "start checker session")
	}

	uri := "file://" + path
	pf := &ProofFile{
		session:    session,
		uri:        uri,
		path:       path,
		version:    1,
		source:     string(source),
		store:      NewContextStore(),
		newSession: opts.NewSession,
		cfg:        opts.Config,
		log:        opts.Logger,
	}
	if pf.log == nil {
		pf.log = rocq.NewLogger(false)
	}
	if opts.Timeout > 0 {
		pf.cfg.Timeout = opts.Timeout
	}

	if err := session.DidOpen(uri, pf.source); err != nil {
		_ = session.Shutdown()
		return nil, wrapErr(ErrServerQuit, err, "didOpen %s", path)
	}
	if err := errorsIn(session.Diagnostics(uri)); err != nil {
		_ = session.Shutdown()
		return nil, wrapErr(ErrInvalidFile, err, "initial document has error diagnostics")
	}

	if opts.EnablePrelude {
		prelude, err := OpenAuxDoc(os.TempDir(), pf.source, opts.NewSession)
		if err != nil {
			pf.log.Warnw("prelude aux doc unavailable, skipping Phase A", "error", err)
		} else {
			if err := DiscoverPrelude(prelude, pf.store, pf.librarySegmenter()); err != nil {
				pf.log.Warnw("prelude discovery failed, continuing without it", "error", err)
			}
			_ = prelude.Close()
		}
	}

	if err := pf.deriveAll(); err != nil {
		_ = session.Shutdown()
		return nil, err
	}
	pf.stepsTaken = len(pf.steps)
	return pf, nil
}

func (pf *ProofFile) librarySegmenter() LibrarySegmenter {
	return func(filePath, source string) ([]Step, error) {
		session, err := pf.newSession("file://" + filepath.Dir(filePath))
		if err != nil {
			return nil, err
		}
		defer session.Shutdown()
		libURI := "file://" + filePath
		if err := session.DidOpen(libURI, source); err != nil {
			return nil, err
		}
		doc, err := session.GetDocument(libURI)
		if err != nil {
			return nil, err
		}
		return Segment(source, doc.Spans, func(p rocq.Position) int { return ByteOffset(source, p) }), nil
	}
}

func errorsIn(diags []rocq.Diagnostic) error {
	for _, d := range diags {
		if d.Severity == rocq.SeverityError {
			return fmt.Errorf("%s", d.Message)
		}
	}
	return nil
}

// deriveAll re-fetches the document, re-segments it, and re-runs the
// tracker from scratch — the "re-derive" step of the edit protocol and the
// initial derivation path, kept identical so there is exactly one code path
// that can go stale.
func (pf *ProofFile) deriveAll() error {
	doc, err := pf.session.GetDocument(pf.uri)
	if err != nil {
		return wrapErr(ErrServerQuit, err, "coq/getDocument")
	}
	pf.steps = Segment(pf.source, doc.Spans, func(p rocq.Position) int { return ByteOffset(pf.source, p) })

	pf.store.ModuleStack = nil
	pf.resolver = &ContextResolver{Store: pf.store, Aux: pf.refreshAux()}
	pf.tracker = NewProofTracker(pf.store, pf.resolver, pf.session, pf.uri, pf.version)

	for i, step := range pf.steps {
		if err := pf.tracker.ProcessStep(i, step); err != nil {
			return err
		}
	}
	pf.valid = errorsIn(pf.session.Diagnostics(pf.uri)) == nil
	return nil
}

// refreshAux closes whatever aux document the previous derivation opened
// and starts a fresh, empty one for this pass: ResolveStep appends each
// step's text to it in processed order (spec.md §4.4), so it must begin
// empty at the start of every derivation to mirror only that derivation's
// walk rather than accumulate across edits. A failure to open one is
// non-fatal — ContextResolver treats a nil Aux as "no notation resolution
// available" and simply omits CNotation references from affected steps'
// context (spec.md §7).
func (pf *ProofFile) refreshAux() *AuxDoc {
	if pf.aux != nil {
		_ = pf.aux.Close()
		pf.aux = nil
	}
	aux, err := OpenAuxDoc(os.TempDir(), "", pf.newSession)
	if err != nil {
		pf.log.Warnw("aux doc unavailable, notation resolution will be skipped", "error", err)
		return nil
	}
	pf.aux = aux
	return aux
}

// --- read-only accessors -------------------------------------------------

// Steps returns the current step sequence.
func (pf *ProofFile) Steps() []Step { return pf.steps }

// Proofs returns every exportable proof closed by the step boundary Exec
// has currently reached — a proof whose terminator lies at or after
// StepsTaken is not yet visible here even if the full document eventually
// closes it.
func (pf *ProofFile) Proofs() []*Proof {
	out := make([]*Proof, 0)
	for _, p := range pf.tracker.AllProofs() {
		if p.NonExport {
			continue
		}
		if p.EndStep > 0 && p.EndStep <= pf.stepsTaken {
			closed := *p
			closed.IsOpen = false
			out = append(out, &closed)
		}
	}
	return out
}

// OpenProofs returns every proof whose opener has been reached but whose
// terminator has not — as of the step boundary Exec has currently reached —
// newest-opened first. Retreating or advancing via Exec changes this set,
// since it is derived from each proof's StartStep/EndStep rather than a
// frozen, whole-document walk.
func (pf *ProofFile) OpenProofs() []*Proof {
	var out []*Proof
	for _, p := range pf.tracker.AllProofs() {
		if p.StartStep < pf.stepsTaken && (p.EndStep == 0 || p.EndStep > pf.stepsTaken) {
			open := *p
			open.IsOpen = true
			out = append(out, &open)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartStep > out[j].StartStep })
	return out
}

// Diagnostics returns the latest diagnostics snapshot for this document.
func (pf *ProofFile) Diagnostics() []rocq.Diagnostic { return pf.session.Diagnostics(pf.uri) }

// IsValid reports whether the current document has no Error diagnostics.
func (pf *ProofFile) IsValid() bool { return pf.valid }

// StepsTaken returns how many step boundaries Exec has advanced to.
func (pf *ProofFile) StepsTaken() int { return pf.stepsTaken }

// Context returns the ContextStore backing resolution.
func (pf *ProofFile) Context() *ContextStore { return pf.store }

// CurrentGoals fetches the goal snapshot at the boundary Exec last reached.
func (pf *ProofFile) CurrentGoals() (*rocq.GoalSnapshot, error) {
	pos := rocq.Position{}
	if pf.stepsTaken > 0 && pf.stepsTaken <= len(pf.steps) {
		pos = pf.steps[pf.stepsTaken-1].Range.End
	}
	return pf.session.ProofGoals(pf.uri, pf.version, pos)
}

// --- exec -----------------------------------------------------------------

// Exec advances (n > 0) or retreats (n < 0) StepsTaken by n step boundaries
// without modifying source text. A retreat past the start of the currently
// open proof frame into a non-proof region is rejected with
// NotImplemented.
func (pf *ProofFile) Exec(n int) error {
	target := pf.stepsTaken + n
	if target < 0 || target > len(pf.steps) {
		return newErr(ErrNotImplemented, "exec(%d) out of range from %d", n, pf.stepsTaken)
	}
	if n < 0 && target > 0 {
		if boundaryLeavesOpenProofIntoTop(pf.tracker.OpenProofs(), target, pf.stepsTaken) {
			return newErr(ErrNotImplemented, "exec(%d) would step back out of the open proof frame", n)
		}
	}
	pf.stepsTaken = target
	return nil
}

// boundaryLeavesOpenProofIntoTop rejects a retreat that would step back out
// of the currently open proof frame into a non-proof region: it finds the
// innermost open proof whose opener has already been executed
// (StartStep < from) and rejects a retreat whose target sits at or before
// that opener, since the opener step itself is the theorem statement, not
// part of the proof body.
func boundaryLeavesOpenProofIntoTop(openProofs []*Proof, target, from int) bool {
	innermostStart := -1
	for _, p := range openProofs {
		if p.StartStep < from && p.StartStep > innermostStart {
			innermostStart = p.StartStep
		}
	}
	if innermostStart < 0 {
		return false
	}
	return target <= innermostStart
}

// --- transactional edits ---------------------------------------------------

// AddStep inserts text immediately after the step at prevIndex.
func (pf *ProofFile) AddStep(prevIndex int, text string) error {
	// Appending at end-of-file when the current source does not end in a
	// newline is rejected outright, since the source has no way to
	// represent the new step as a distinct line.
	if prevIndex == len(pf.steps)-1 && !strings.HasSuffix(pf.source, "\n") {
		return newErr(ErrInvalidStep, "cannot add a step at end-of-file: file does not end in a newline")
	}
	return pf.applyBatch([]EditOp{AddOp(prevIndex, text)}, ErrInvalidAdd)
}

// DeleteStep removes the step at index.
func (pf *ProofFile) DeleteStep(index int) error {
	if err := pf.checkDeletable(index); err != nil {
		return err
	}
	return pf.applyBatch([]EditOp{DeleteOp(index)}, ErrInvalidDelete)
}

// AppendStep adds text as the new last step of proof.
func (pf *ProofFile) AppendStep(proof *Proof, text string) error {
	return pf.AddStep(pf.appendAnchor(proof), text)
}

// appendAnchor returns the raw document step index to insert after for
// AppendStep: the proof's last recorded body step, or — since the
// proof-opener token itself is never recorded as a ProofStep — the
// opener's own step index when the proof has no body steps yet.
func (pf *ProofFile) appendAnchor(proof *Proof) int {
	if len(proof.Steps) == 0 {
		return proof.StartStep
	}
	return pf.stepIndexForRange(proof.Steps[len(proof.Steps)-1].Range)
}

// PopStep removes the last step of proof.
func (pf *ProofFile) PopStep(proof *Proof) error {
	idx := pf.lastStepIndexOf(proof)
	if idx < 0 {
		return newErr(ErrInvalidDelete, "proof has no steps to pop")
	}
	return pf.DeleteStep(idx)
}

// ChangeSteps applies an ordered batch of Add/Delete operations atomically.
func (pf *ProofFile) ChangeSteps(ops ...EditOp) error {
	return pf.applyBatch(ops, ErrInvalidChange)
}

// ChangeProof rewrites proof's entire body (every step after its opener, up
// to but excluding its terminator) with newBodyText as a single step.
func (pf *ProofFile) ChangeProof(proof *Proof, newBodyText string) error {
	lastBody := len(proof.Steps) - 1
	if proof.EndStep > 0 {
		lastBody-- // a closed proof's last recorded step is its terminator
	}
	if lastBody < 0 {
		return newErr(ErrInvalidChange, "proof has no replaceable body")
	}
	first := pf.stepIndexForRange(proof.Steps[0].Range)
	last := pf.stepIndexForRange(proof.Steps[lastBody].Range)
	if first < 0 || last < 0 || last < first {
		return newErr(ErrInvalidChange, "could not locate proof body steps")
	}
	ops := make([]EditOp, 0, last-first+2)
	for i := last; i >= first; i-- {
		ops = append(ops, DeleteOp(i))
	}
	ops = append(ops, AddOp(first-1, newBodyText))
	return pf.applyBatch(ops, ErrInvalidChange)
}

func (pf *ProofFile) stepIndexForRange(r rocq.Range) int {
	for i, s := range pf.steps {
		if s.Range == r {
			return i
		}
	}
	return -1
}

// lastStepIndexOf returns the raw document step index of proof's last
// recorded body step, or -1 if it has none to pop.
func (pf *ProofFile) lastStepIndexOf(proof *Proof) int {
	if len(proof.Steps) == 0 {
		return -1
	}
	return pf.stepIndexForRange(proof.Steps[len(proof.Steps)-1].Range)
}

func (pf *ProofFile) checkDeletable(index int) error {
	if index < 0 || index >= len(pf.steps) {
		return newErr(ErrInvalidDelete, "index %d out of range", index)
	}
	for _, p := range append(pf.tracker.Proofs(), pf.tracker.OpenProofs()...) {
		if p.StartStep == index {
			return newErr(ErrInvalidDelete, "cannot delete theorem opener of a live proof")
		}
	}
	return nil
}

// applyBatch runs the full snapshot -> splice -> resync -> validate ->
// re-derive -> rollback protocol every transactional edit goes through.
func (pf *ProofFile) applyBatch(ops []EditOp, failKind ErrorKind) error {
	if len(ops) == 0 {
		return nil
	}
	snap := pf.takeSnapshot()

	target, addSpans, err := buildTargetText(pf.steps, ops)
	if err != nil {
		return err
	}

	pf.version++
	if err := pf.session.DidChange(pf.uri, pf.version, target); err != nil {
		pf.rollback(snap)
		return wrapErr(ErrServerQuit, err, "didChange")
	}

	newErrs := newErrorDiagnostics(pf.session.Diagnostics(pf.uri), snap.diagSig)
	if len(newErrs) > 0 {
		pf.rollbackWithText(snap, target)
		return newErr(failKind, "edit introduced %d new error diagnostic(s)", len(newErrs))
	}

	pf.source = target
	if err := pf.deriveAll(); err != nil {
		pf.rollbackWithText(snap, target)
		return wrapErr(failKind, err, "re-derive after edit")
	}

	if bad := firstBoundaryViolation(pf.steps, addSpans); bad != nil {
		pf.rollbackWithText(snap, target)
		return newErr(failKind, "inserted text at byte %d-%d does not land on a step boundary — it absorbed part of an adjacent step", bad.Start, bad.End)
	}

	pf.stepsTaken = len(pf.steps)
	return nil
}

// firstBoundaryViolation reports the first AddSpan (if any) whose start or
// end byte offset does not coincide with a step boundary in steps, meaning
// the checker's re-segmentation of the edited text pulled characters from a
// neighboring step into (or out of) the inserted span instead of keeping it
// as its own step.
func firstBoundaryViolation(steps []Step, spans []AddSpan) *AddSpan {
	boundaries := map[int]bool{0: true}
	offset := 0
	for _, s := range steps {
		offset += len(s.Text)
		boundaries[offset] = true
	}
	for i := range spans {
		sp := spans[i]
		if sp.Start == sp.End {
			continue // empty insertion has nothing to absorb
		}
		if !boundaries[sp.Start] || !boundaries[sp.End] {
			return &sp
		}
	}
	return nil
}

func newErrorDiagnostics(diags []rocq.Diagnostic, beforeSig string) []rocq.Diagnostic {
	var out []rocq.Diagnostic
	seen := map[string]bool{}
	for _, tok := range splitSignature(beforeSig) {
		seen[tok] = true
	}
	for _, d := range diags {
		if d.Severity != rocq.SeverityError {
			continue
		}
		key := diagnosticsSignature([]rocq.Diagnostic{d})
		if !seen[key] {
			out = append(out, d)
		}
	}
	return out
}

func splitSignature(sig string) []string {
	var out []string
	start := 0
	for i := 0; i < len(sig); i++ {
		if sig[i] == ';' {
			out = append(out, sig[start:i+1])
			start = i + 1
		}
	}
	return out
}

// rollback restores the pre-edit source unconditionally.
func (pf *ProofFile) rollback(snap snapshot) {
	pf.rollbackWithText(snap, pf.source)
}

// rollbackWithText restores snap's text via the checker (attemptedText is
// whatever was last sent, so the rollback didChange always has something
// concrete to revert from) and re-derives in-memory state from the restored
// source.
func (pf *ProofFile) rollbackWithText(snap snapshot, attemptedText string) {
	pf.version++
	_ = pf.session.DidChange(pf.uri, pf.version, snap.source)
	pf.source = snap.source
	pf.stepsTaken = snap.stepsTaken
	_ = pf.deriveAll()
}

// --- lifecycle --------------------------------------------------------------

// Run advances the tracker to the end of the file in one call.
func (pf *ProofFile) Run() error {
	return pf.Exec(len(pf.steps) - pf.stepsTaken)
}

// SaveVo asks the checker to compile and persist a .vo artifact.
func (pf *ProofFile) SaveVo() error {
	return pf.session.SaveVo(pf.uri)
}

// Close closes the document and shuts down the checker session.
func (pf *ProofFile) Close() error {
	_ = pf.session.DidClose(pf.uri)
	if pf.aux != nil {
		_ = pf.aux.Close()
	}
	return pf.session.Shutdown()
}
