package proofdoc

import (
	"fmt"
	"os"
	"strings"
)

// readLibrarySource loads a library's .v source from disk. Compiled
// libraries with no accompanying source (only a .vo) are reported as
// unreadable and skipped by the caller.
func readLibrarySource(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// prelude.go — Phase A prelude discovery: harvest every transitively loaded
// library's terms into a ContextStore before Phase B (in-file tracking)
// begins.

// LibrarySegmenter re-segments a library's source file without proof
// tracking and returns its steps, in file order; harvestLibrary reads the
// declared terms off those steps. Callers supply the library's path and
// source text, and the segmenter obtains the AST spans itself (the same
// way the main document's are fetched).
type LibrarySegmenter func(filePath, source string) ([]Step, error)

// DiscoverPrelude runs Phase A: appends "Print Libraries." to aux, reads
// the resulting diagnostic for the list of transitively loaded library
// names, then for each name appends "Locate Library <name>." to learn its
// file path, and harvests that file's terms via segment (dropping any
// declared Local, an acknowledged approximation of Coq's per-module Local
// visibility).
func DiscoverPrelude(aux *AuxDoc, store *ContextStore, segment LibrarySegmenter) error {
	printLine := aux.NextLine()
	aux.Append("Print Libraries.")
	if err := aux.Sync(); err != nil {
		return err
	}
	msg, ok := aux.LocateQuery("Print", "Libraries", printLine)
	if !ok {
		return newErr(ErrServerQuit, "Print Libraries. produced no diagnostic")
	}
	libraries := parseLibraryNames(msg)

	for _, lib := range libraries {
		line := aux.NextLine()
		aux.Append(fmt.Sprintf("Locate Library %s.", lib))
		if err := aux.Sync(); err != nil {
			return err
		}
		pathMsg, ok := aux.LocateQuery("Locate Library", lib, line)
		if !ok {
			continue // a library whose path can't be resolved is skipped, not fatal
		}
		filePath := parseLibraryPath(pathMsg)
		if filePath == "" {
			continue
		}
		if err := harvestLibrary(filePath, segment, store); err != nil {
			return err
		}
	}
	return nil
}

// parseLibraryNames parses the line-oriented "Print Libraries." output,
// which lists one loaded library name per line after a header line.
func parseLibraryNames(msg string) []string {
	var names []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Loaded") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// parseLibraryPath extracts the file system path from a "Locate Library"
// response, which has the shape "<Qualified.Name> is bound to file <path>".
func parseLibraryPath(msg string) string {
	const marker = "file "
	idx := strings.LastIndex(msg, marker)
	if idx < 0 {
		return ""
	}
	path := strings.TrimSpace(msg[idx+len(marker):])
	return strings.TrimSuffix(path, ".")
}

// harvestLibrary segments filePath's source and inserts every declared
// non-Local term into store under that library's module path.
func harvestLibrary(filePath string, segment LibrarySegmenter, store *ContextStore) error {
	source, err := readLibrarySource(filePath)
	if err != nil {
		return nil // unreadable compiled-only libraries are skipped, not fatal
	}
	steps, err := segment(filePath, source)
	if err != nil {
		return err
	}
	modulePath := libraryModulePath(filePath)
	store.ModuleStack = append(store.ModuleStack, modulePath...)
	defer func() {
		store.ModuleStack = store.ModuleStack[:len(store.ModuleStack)-len(modulePath)]
	}()

	for _, step := range steps {
		kind, name, isLocal := declaredTerm(step)
		if name == "" {
			continue
		}
		if isLocal {
			continue // Local terms are dropped on import, an approximation of per-module visibility
		}
		store.Declare(name, kind, filePath)
	}
	return nil
}

// libraryModulePath derives a synthetic module path segment for a library
// file so its harvested terms don't collide with same-named in-file terms.
func libraryModulePath(filePath string) []string {
	base := filePath
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".v")
	base = strings.TrimSuffix(base, ".vo")
	if base == "" {
		return nil
	}
	return []string{base}
}

// declaredTerm inspects a step's top-level AST tag and returns the kind,
// declared name, and whether the declaration carries Local visibility. See
// classifyDeclaration in tracker.go, shared with ProofTracker's Phase B
// in-file term insertion.
func declaredTerm(step Step) (TermKind, string, bool) {
	return classifyDeclaration(step.Ast)
}
