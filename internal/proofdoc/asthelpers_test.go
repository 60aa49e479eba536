package proofdoc

import "github.com/proofdoc/rocq-proofdoc/internal/rocq"

// asthelpers_test.go — literal AstNode builders shared by this package's
// tests, standing in for the trees a real coq-lsp would emit.

func astStr(s string) rocq.AstNode { return rocq.AstNode{Kind: rocq.AstStr, Str: s} }

func astTag(tag string, rest ...rocq.AstNode) rocq.AstNode {
	return rocq.AstNode{Kind: rocq.AstList, List: append([]rocq.AstNode{astStr(tag)}, rest...)}
}

func astList(items ...rocq.AstNode) rocq.AstNode {
	return rocq.AstNode{Kind: rocq.AstList, List: items}
}

func astId(name string) rocq.AstNode { return astTag("Id", astStr(name)) }

func astDirPath(parts ...string) rocq.AstNode {
	items := make([]rocq.AstNode, len(parts))
	for i, p := range parts {
		items[i] = astId(p)
	}
	return astTag("DirPath", astList(items...))
}

func astQualid(dirpath rocq.AstNode, tail string) rocq.AstNode {
	return astTag("Ser_Qualid", dirpath, astId(tail))
}

func astNotation(pattern string, args ...rocq.AstNode) rocq.AstNode {
	return astTag("CNotation", astStr("scope"), astStr(pattern), astList(args...))
}

func pos(line, ch int) rocq.Position { return rocq.Position{Line: line, Character: ch} }

func rng(sl, sc, el, ec int) rocq.Range {
	return rocq.Range{Start: pos(sl, sc), End: pos(el, ec)}
}
