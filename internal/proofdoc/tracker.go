package proofdoc

import "github.com/proofdoc/rocq-proofdoc/internal/rocq"

// tracker.go — ProofTracker: the state machine that folds a step sequence
// into proof objects, module/section frames, and program-obligation
// attribution.

// ProofStep is one step inside a tracked proof, with the goal snapshot
// captured before the checker executed it and its resolved dependencies.
type ProofStep struct {
	Text        string
	Range       rocq.Range
	Ast         rocq.AstNode
	GoalsBefore *rocq.GoalSnapshot
	Context     []*Term
}

// Proof is a maximal contiguous run of steps from a theorem-opener to (for
// closed proofs) a terminator.
type Proof struct {
	Term      *Term
	Steps     []ProofStep
	Program   *Term
	IsOpen    bool
	NonExport bool // true inside a Module Type; callers filter these out
	StartStep int
	EndStep   int // exclusive; meaningful only once closed
}

// frameKind distinguishes the tracker's nesting stack entries.
type frameKind int

const (
	frameProof frameKind = iota
	frameModule
	frameSection
	frameModuleType
)

type frame struct {
	kind      frameKind
	name      string
	proof     *Proof // set when kind == frameProof
	nonExport bool
	started   bool // proof-opener token (Proof., Next Obligation., ...) already consumed
}

// ProofTracker walks a step sequence and maintains the open-proof stack.
type ProofTracker struct {
	Store    *ContextStore
	Resolver *ContextResolver
	Session  CheckerSession
	URI      string
	Version  int

	closed       []*Proof
	openStack    []*frame // innermost last; OpenProofs() reverses for callers
	pendingProg  *Term    // most recent Program definition awaiting obligations
	progProofs   map[*Term][]*Proof
	moduleTypeDepth int
}

// NewProofTracker constructs a tracker bound to a ContextStore, resolver,
// and checker session used to fetch goal snapshots.
func NewProofTracker(store *ContextStore, resolver *ContextResolver, session CheckerSession, uri string, version int) *ProofTracker {
	return &ProofTracker{
		Store:      store,
		Resolver:   resolver,
		Session:    session,
		URI:        uri,
		Version:    version,
		progProofs: make(map[*Term][]*Proof),
	}
}

// Proofs returns every closed proof seen so far, excluding those marked
// non-exportable (declared inside a Module Type).
func (pt *ProofTracker) Proofs() []*Proof {
	out := make([]*Proof, 0, len(pt.closed))
	for _, p := range pt.closed {
		if !p.NonExport {
			out = append(out, p)
		}
	}
	return out
}

// OpenProofs returns the currently open proofs, newest first.
func (pt *ProofTracker) OpenProofs() []*Proof {
	var out []*Proof
	for i := len(pt.openStack) - 1; i >= 0; i-- {
		if f := pt.openStack[i]; f.kind == frameProof {
			out = append(out, f.proof)
		}
	}
	return out
}

// AllProofs returns every proof this tracker has ever formed — every
// closed proof plus every proof still open once the walk reaches its last
// processed step — so a caller can recompute "open at position X" purely
// from each Proof's StartStep/EndStep bookkeeping, without replaying the
// walk.
func (pt *ProofTracker) AllProofs() []*Proof {
	out := make([]*Proof, 0, len(pt.closed)+len(pt.openStack))
	out = append(out, pt.closed...)
	for _, f := range pt.openStack {
		if f.kind == frameProof {
			out = append(out, f.proof)
		}
	}
	return out
}

func (pt *ProofTracker) currentModulePath() []string {
	return pt.Store.CurrentModulePath()
}

func (pt *ProofTracker) inModuleType() bool {
	return pt.moduleTypeDepth > 0
}

func (pt *ProofTracker) innermostProofFrame() *frame {
	for i := len(pt.openStack) - 1; i >= 0; i-- {
		if pt.openStack[i].kind == frameProof {
			return pt.openStack[i]
		}
	}
	return nil
}

// ProcessStep classifies one step's AST top-level tag and folds it into the
// tracker's state.
func (pt *ProofTracker) ProcessStep(idx int, step Step) error {
	tag := topTag(step.Ast)

	switch {
	case isTheoremOpener(tag, step.Ast):
		pt.openProof(idx, step)
	case isProofAttach(tag):
		pt.attachProofOpener(step)
	case isEndProof(tag):
		return pt.closeProof(idx, step)
	case tag == "VernacDefineModule":
		pt.Store.PushModule(moduleName(step.Ast))
		pt.openStack = append(pt.openStack, &frame{kind: frameModule, name: moduleName(step.Ast)})
	case tag == "VernacDeclareModuleType":
		pt.Store.PushModule(moduleName(step.Ast))
		pt.openStack = append(pt.openStack, &frame{kind: frameModuleType, name: moduleName(step.Ast)})
		pt.moduleTypeDepth++
	case tag == "VernacBeginSection":
		pt.Store.PushModule(moduleName(step.Ast))
		pt.openStack = append(pt.openStack, &frame{kind: frameSection, name: moduleName(step.Ast)})
	case tag == "VernacEndSegment":
		pt.popSegment()
	case isProgramDefinition(tag, step.Ast):
		kind, name, isLocal := classifyDeclaration(step.Ast)
		t := pt.declareIfNamed(kind, name, isLocal, step)
		pt.pendingProg = t
	case isNextObligation(tag, step.Ast):
		pt.openProgramObligation(idx, step)
	default:
		if f := pt.innermostProofFrame(); f != nil {
			pt.appendProofStep(f.proof, step)
		} else {
			kind, name, isLocal := classifyDeclaration(step.Ast)
			pt.declareIfNamed(kind, name, isLocal, step)
		}
	}
	return nil
}

func (pt *ProofTracker) declareIfNamed(kind TermKind, name string, isLocal bool, step Step) *Term {
	if name == "" {
		return nil
	}
	t := pt.Store.Declare(name, kind, pt.URI)
	if isLocal {
		pt.Store.MarkLocal(t.QualifiedName())
	}
	return t
}

func (pt *ProofTracker) openProof(idx int, step Step) {
	kind, name, isLocal := classifyDeclaration(step.Ast)
	term := pt.declareIfNamed(kind, name, isLocal, step)
	if term == nil {
		term = &Term{Text: "", Kind: KindTheorem, ModulePath: pt.currentModulePath()}
	}
	p := &Proof{
		Term:      term,
		IsOpen:    true,
		NonExport: pt.inModuleType(),
		StartStep: idx,
	}
	pt.openStack = append(pt.openStack, &frame{kind: frameProof, proof: p})
}

// attachProofOpener consumes a proof's opener token (e.g. "Proof."). The
// opener itself is never recorded as a ProofStep — proof.Steps[0] is the
// first real body step, per the proof's own first tactic or terminator.
func (pt *ProofTracker) attachProofOpener(step Step) {
	f := pt.innermostProofFrame()
	if f == nil || f.started {
		return
	}
	f.started = true
}

func (pt *ProofTracker) appendProofStep(p *Proof, step Step) {
	var goals *rocq.GoalSnapshot
	if pt.Session != nil {
		goals, _ = pt.Session.ProofGoals(pt.URI, pt.Version, step.Range.Start)
	}
	var ctx []*Term
	if pt.Resolver != nil {
		ctx, _ = pt.Resolver.ResolveStep(&step)
	}
	p.Steps = append(p.Steps, ProofStep{
		Text:        step.Text,
		Range:       step.Range,
		Ast:         step.Ast,
		GoalsBefore: goals,
		Context:     ctx,
	})
}

func (pt *ProofTracker) closeProof(idx int, step Step) error {
	f := pt.innermostProofFrame()
	if f == nil {
		return newErr(ErrInvalidStep, "terminator with no open proof at step %d", idx)
	}
	pt.appendProofStep(f.proof, step)
	f.proof.IsOpen = false
	f.proof.EndStep = idx + 1

	// remove the frame from the stack wherever it sits (it is always the
	// innermost proof frame found, but other module/section frames may be
	// interleaved above pure bookkeeping — proofs never nest inside a
	// pending module push without the module frame already being on top,
	// so innermost-proof-frame is always the top proof entry).
	for i := len(pt.openStack) - 1; i >= 0; i-- {
		if pt.openStack[i] == f {
			pt.openStack = append(pt.openStack[:i], pt.openStack[i+1:]...)
			break
		}
	}
	pt.closed = append(pt.closed, f.proof)
	if pt.pendingProg != nil {
		f.proof.Program = pt.pendingProg
		pt.progProofs[pt.pendingProg] = append(pt.progProofs[pt.pendingProg], f.proof)
	}
	return nil
}

func (pt *ProofTracker) popSegment() {
	for i := len(pt.openStack) - 1; i >= 0; i-- {
		k := pt.openStack[i].kind
		if k == frameModule || k == frameSection || k == frameModuleType {
			if k == frameModuleType {
				pt.moduleTypeDepth--
			}
			pt.openStack = append(pt.openStack[:i], pt.openStack[i+1:]...)
			pt.Store.PopModule()
			return
		}
	}
}

// openProgramObligation opens a proof for one Next Obligation/Obligation N
// step, attributed to the pending Program definition. Like a plain proof's
// "Proof." token, the obligation opener itself is not recorded as a
// ProofStep; the frame starts already attached since no separate attach
// token follows it.
func (pt *ProofTracker) openProgramObligation(idx int, step Step) {
	term := pt.pendingProg
	p := &Proof{
		Term:      term,
		Program:   term,
		IsOpen:    true,
		NonExport: pt.inModuleType(),
		StartStep: idx,
	}
	pt.openStack = append(pt.openStack, &frame{kind: frameProof, proof: p, started: true})
}

func topTag(n rocq.AstNode) string {
	if n.Kind == rocq.AstList && len(n.List) > 0 && n.List[0].Kind == rocq.AstStr {
		return n.List[0].Str
	}
	return ""
}

func isTheoremOpener(tag string, n rocq.AstNode) bool {
	switch tag {
	case "VernacStartTheoremProof", "Goal":
		return true
	case "VernacDefinition", "VernacFixpoint", "VernacInstance":
		// A Program-flagged definition is handled by isProgramDefinition
		// instead — it opens no proof of its own, only pending obligations.
		return !hasProgramFlag(n) && declarationBodyElided(n)
	}
	return false
}

// declarationBodyElided reports whether a Definition/Fixpoint/Instance
// declaration has no body yet — spec.md §4.5's transition table treats
// such a declaration as a theorem-opener the same way VernacStartTheoremProof
// is, since the checker leaves it as an open goal until a proof script
// supplies the missing term. coq-lsp serializes an absent constr_expr as a
// bare None option tag in the declaration's body slot (typically under a
// DefineBody wrapper for Definition/Instance, inline per fixpoint_expr for
// Fixpoint); we scan a bounded depth below the declaration rather than its
// whole subtree, since a None nested deeper (an elided type annotation, for
// instance) does not by itself mean the body is missing.
func declarationBodyElided(n rocq.AstNode) bool {
	return hasNoneTag(n, 3)
}

func hasNoneTag(n rocq.AstNode, depth int) bool {
	if n.IsTag("None") {
		return true
	}
	if depth == 0 || n.Kind != rocq.AstList {
		return false
	}
	for _, c := range n.List {
		if hasNoneTag(c, depth-1) {
			return true
		}
	}
	return false
}

func isProofAttach(tag string) bool {
	switch tag {
	case "VernacProof", "VernacProofMode":
		return true
	}
	return false
}

func isEndProof(tag string) bool {
	return tag == "VernacEndProof"
}

func isProgramDefinition(tag string, n rocq.AstNode) bool {
	return tag == "VernacDefinition" && hasProgramFlag(n)
}

func hasProgramFlag(n rocq.AstNode) bool {
	for _, c := range n.List {
		if c.IsTag("Program") {
			return true
		}
	}
	return false
}

func isNextObligation(tag string, n rocq.AstNode) bool {
	switch tag {
	case "VernacNextObligation", "VernacObligation":
		return true
	}
	return false
}

// moduleName extracts a module/section's declared name from its opener
// step, falling back to "" when the shape doesn't carry one.
func moduleName(n rocq.AstNode) string {
	for _, c := range n.List[1:] {
		if s := identString(c); s != "" {
			return s
		}
	}
	return ""
}

// classifyDeclaration inspects a step's top-level tag for a term
// declaration, returning its kind, declared name (empty if the step
// declares nothing), and whether it carries Local visibility. Shared by
// ProofTracker's Phase B in-file tracking and prelude.go's Phase A library
// harvesting.
func classifyDeclaration(n rocq.AstNode) (TermKind, string, bool) {
	tag := topTag(n)
	kind := termKindFromTag(tag)
	if tag == "" {
		return KindOther, "", false
	}
	var name string
	for _, c := range n.List[1:] {
		if s := identString(c); s != "" {
			name = s
			break
		}
	}
	isLocal := hasLocalFlag(n)
	if isLocal {
		kind = KindLocal
	}
	switch tag {
	case "VernacStartTheoremProof":
		if kind == KindOther {
			kind = KindTheorem
		}
	}
	return kind, name, isLocal
}

func hasLocalFlag(n rocq.AstNode) bool {
	for _, c := range n.List {
		if c.IsTag("Local") {
			return true
		}
	}
	return false
}
