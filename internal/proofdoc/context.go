package proofdoc

import "strings"

// context.go — ContextStore: the term/notation index and the module/section
// stack.

type notationKey struct {
	pattern string
	scope   string
}

// ContextStore indexes every term and notation visible to the document
// being tracked, plus the currently-open module/section stack and the set
// of names declared Local (visible only within their own file).
type ContextStore struct {
	Terms      map[string]*Term
	Notations  map[notationKey]*Term
	ModuleStack []string
	Local      map[string]bool
}

// NewContextStore returns an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		Terms:     make(map[string]*Term),
		Notations: make(map[notationKey]*Term),
		Local:     make(map[string]bool),
	}
}

// PushModule enters a new module or section frame.
func (c *ContextStore) PushModule(name string) {
	c.ModuleStack = append(c.ModuleStack, name)
}

// PopModule exits the innermost module or section frame, if any is open.
func (c *ContextStore) PopModule() {
	if len(c.ModuleStack) > 0 {
		c.ModuleStack = c.ModuleStack[:len(c.ModuleStack)-1]
	}
}

// CurrentModulePath returns a copy of the active module/section stack.
func (c *ContextStore) CurrentModulePath() []string {
	out := make([]string, len(c.ModuleStack))
	copy(out, c.ModuleStack)
	return out
}

// Declare inserts a term under the currently active module path, keyed by
// its fully-qualified name.
func (c *ContextStore) Declare(name string, kind TermKind, filePath string) *Term {
	t := &Term{
		Text:       name,
		Kind:       kind,
		ModulePath: c.CurrentModulePath(),
		FilePath:   filePath,
	}
	c.Terms[t.QualifiedName()] = t
	return t
}

// MarkLocal records name as Local-visibility: Local terms are dropped when
// harvesting a library but kept when declared directly in the tracked file.
func (c *ContextStore) MarkLocal(qualifiedName string) {
	c.Local[qualifiedName] = true
}

// IsLocal reports whether name was declared Local.
func (c *ContextStore) IsLocal(qualifiedName string) bool {
	return c.Local[qualifiedName]
}

// DeclareNotation indexes a term under a (pattern, scope) notation key.
func (c *ContextStore) DeclareNotation(pattern, scope string, t *Term) {
	c.Notations[notationKey{pattern: pattern, scope: scope}] = t
}

// GetNotation looks up a notation by pattern and scope, returning
// ErrNotationNotFound when absent.
func (c *ContextStore) GetNotation(pattern, scope string) (*Term, error) {
	t, ok := c.Notations[notationKey{pattern: pattern, scope: scope}]
	if !ok {
		return nil, newErr(ErrNotationNotFound, "notation %q in scope %q not found", pattern, scope)
	}
	return t, nil
}

// Lookup resolves an unqualified reference x under the given module path by
// probing m1.m2...mk.x, m1.m2...m(k-1).x, ..., x in that order. The first
// hit wins.
func (c *ContextStore) Lookup(modulePath []string, x string) (*Term, bool) {
	for k := len(modulePath); k >= 0; k-- {
		key := x
		if k > 0 {
			key = strings.Join(modulePath[:k], ".") + "." + x
		}
		if t, ok := c.Terms[key]; ok {
			return t, true
		}
	}
	return nil, false
}
