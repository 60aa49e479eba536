package proofdoc

import "github.com/proofdoc/rocq-proofdoc/internal/rocq"

// step.go — the Segmenter: converts a checker's AST-span document into an
// ordered step sequence. Each step's text runs from the end of the prior
// step's range to the end of its own range, so leading whitespace and
// comments attach to the step that follows them. Any text after the last
// span (such as a trailing newline) is attached to the last step, so
// concatenating every step's text reproduces the document exactly.

// Step is one top-level command, exactly as Segmenter carved it from the
// source. Mutated only by EditEngine; destroyed on re-segmentation.
type Step struct {
	Text  string
	Range rocq.Range
	Ast   rocq.AstNode
	Index int
}

// Segment converts source text and the checker's span list into an ordered
// step sequence. offsetOf must map a rocq.Position to a byte offset into
// source; it is supplied by the caller since only the caller knows the
// encoding of the concrete source buffer it holds (UTF-8 bytes vs UTF-16
// code units differ for non-ASCII source, which proof sources can contain
// in comments or string literals).
func Segment(source string, spans []rocq.DocSpan, offsetOf func(rocq.Position) int) []Step {
	steps := make([]Step, 0, len(spans))
	prevEnd := 0
	for i, span := range spans {
		end := offsetOf(span.Range.End)
		steps = append(steps, Step{
			Text:  source[prevEnd:end],
			Range: span.Range,
			Ast:   span.Span,
			Index: i,
		})
		prevEnd = end
	}
	if n := len(steps); n > 0 && prevEnd < len(source) {
		steps[n-1].Text += source[prevEnd:]
	}
	return steps
}

// ConcatText reproduces the source a step sequence was carved from; used to
// verify the round-trip invariant.
func ConcatText(steps []Step) string {
	var out []byte
	for _, s := range steps {
		out = append(out, s.Text...)
	}
	return string(out)
}
