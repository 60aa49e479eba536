package proofdoc

import (
	"fmt"
	"strings"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

// resolver.go — ContextResolver: walks a step's AST, resolving Ser_Qualid
// references directly against the ContextStore and planning AuxDoc Locate
// queries for CNotation references.

type planKind int

const (
	planResolved planKind = iota
	planLocate
)

type resolvePlan struct {
	kind    planKind
	term    *Term  // set when kind == planResolved
	pattern string // set when kind == planLocate
}

// identString extracts the Id string carried by an Ast node: either an
// ["Id", name] tagged pair or a bare string scalar.
func identString(n rocq.AstNode) string {
	if n.IsTag("Id") && len(n.List) >= 2 {
		return n.List[1].Str
	}
	if n.Kind == rocq.AstStr {
		return n.Str
	}
	return ""
}

// qualidName reconstructs the fully-qualified name a Ser_Qualid(parts, tail)
// node denotes: the dirpath parts (innermost-first, as Coq stores them),
// reversed, dotted, then the tail identifier.
func qualidName(n rocq.AstNode) string {
	if !n.IsTag("Ser_Qualid") || len(n.List) < 3 {
		return ""
	}
	dirpath := n.List[1]
	tail := identString(n.List[2])
	var parts []string
	if dirpath.IsTag("DirPath") && len(dirpath.List) >= 2 {
		for _, p := range dirpath.List[1].List {
			if s := identString(p); s != "" {
				parts = append(parts, s)
			}
		}
	}
	segs := make([]string, 0, len(parts)+1)
	for i := len(parts) - 1; i >= 0; i-- {
		segs = append(segs, parts[i])
	}
	if tail != "" {
		segs = append(segs, tail)
	}
	return strings.Join(segs, ".")
}

// notationPattern extracts the printable notation pattern string from a
// CNotation's pattern argument, which may be a bare string or a tagged
// wrapper around one (e.g. an InConstrEntry/InCustomEntry scope marker).
func notationPattern(n rocq.AstNode) string {
	if n.Kind == rocq.AstStr {
		return n.Str
	}
	if n.Kind == rocq.AstList {
		for _, c := range n.List {
			if s := notationPattern(c); s != "" {
				return s
			}
		}
	}
	return ""
}

// walk recurses over an AST node, appending a resolvePlan for every
// Ser_Qualid (resolved immediately against store) and CNotation (deferred
// to a Locate query) it finds.
func walk(n rocq.AstNode, modulePath []string, store *ContextStore, plans *[]resolvePlan) {
	switch {
	case n.IsTag("Ser_Qualid"):
		name := qualidName(n)
		if name == "" {
			return
		}
		// Lookup must use the UNqualified tail against the module stack, not
		// the literal printed segments, so re-derive the tail alone.
		tail := name
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			tail = name[i+1:]
		}
		if t, ok := store.Lookup(modulePath, tail); ok {
			*plans = append(*plans, resolvePlan{kind: planResolved, term: t})
			return
		}
		// fall back to an exact fully-qualified hit (already-dotted Ser_Qualid
		// references crossing module boundaries resolve this way).
		if t, ok := store.Terms[name]; ok {
			*plans = append(*plans, resolvePlan{kind: planResolved, term: t})
		}
	case n.IsTag("CNotation"):
		if len(n.List) >= 3 {
			if pattern := notationPattern(n.List[2]); pattern != "" {
				*plans = append(*plans, resolvePlan{kind: planLocate, pattern: pattern})
			}
		}
		if len(n.List) >= 4 {
			walk(n.List[3], modulePath, store, plans)
		}
	case n.Kind == rocq.AstMap:
		for _, kv := range n.Map {
			walk(kv.Value, modulePath, store, plans)
		}
	case n.Kind == rocq.AstList:
		for _, c := range n.List {
			walk(c, modulePath, store, plans)
		}
	default:
		// scalar: ignore
	}
}

// ContextResolver resolves a step's dependency list using a ContextStore
// plus a shared AuxDoc for notation lookups.
type ContextResolver struct {
	Store *ContextStore
	Aux   *AuxDoc
}

// ResolveStep walks step's AST, appends the step text to the aux mirror so
// its semantic state tracks the real document, issues any planned Locate
// queries after one sync, and returns the ordered, deduplicated term list.
// Calling this twice on the same step and store state yields the same
// result.
func (r *ContextResolver) ResolveStep(step *Step) ([]*Term, error) {
	var plans []resolvePlan
	walk(step.Ast, r.Store.CurrentModulePath(), r.Store, &plans)

	if r.Aux == nil {
		return dedupResolved(plans), nil
	}

	r.Aux.Append(step.Text)
	type pending struct {
		idx     int
		pattern string
		line    int
	}
	var queries []pending
	for i, p := range plans {
		if p.kind != planLocate {
			continue
		}
		line := r.Aux.NextLine()
		r.Aux.Append(fmt.Sprintf("Locate \"%s\".", p.pattern))
		queries = append(queries, pending{idx: i, pattern: p.pattern, line: line})
	}
	if len(queries) > 0 {
		if err := r.Aux.Sync(); err != nil {
			return nil, err
		}
	}

	resolved := make([]*Term, len(plans))
	for i, p := range plans {
		if p.kind == planResolved {
			resolved[i] = p.term
		}
	}
	for _, q := range queries {
		msg, ok := r.Aux.LocateQuery("Locate", fmt.Sprintf("%q", q.pattern), q.line)
		if !ok {
			continue // non-fatal: step stays valid, term omitted
		}
		name := DisambiguateLocate(msg)
		t, err := r.Store.GetNotation(q.pattern, "")
		if err != nil || t == nil {
			t = &Term{Text: name, Kind: KindNotation}
			r.Store.DeclareNotation(q.pattern, "", t)
		}
		resolved[q.idx] = t
	}

	return dedupTerms(resolved), nil
}

func dedupResolved(plans []resolvePlan) []*Term {
	terms := make([]*Term, 0, len(plans))
	for _, p := range plans {
		if p.kind == planResolved {
			terms = append(terms, p.term)
		}
	}
	return dedupTerms(terms)
}

// dedupTerms preserves first-seen order while dropping nils (unresolved
// plans) and repeats.
func dedupTerms(terms []*Term) []*Term {
	out := make([]*Term, 0, len(terms))
	seen := make(map[*Term]bool, len(terms))
	for _, t := range terms {
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
