package rocq

// types.go — wire-level proof-checker types: positions, ranges, the dynamic
// AST node shape coq-lsp serializes Fleche documents as, and the structured
// goal/diagnostic payloads of proof/goals and textDocument/publishDiagnostics.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Position is a zero-based, UTF-16-code-unit (line, character) pair, as
// dictated by the LSP wire protocol.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Less reports whether p sorts strictly before o in document order.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

// Range is a half-open (start, end) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// normalizeDiagnosticRange converts a single-line, inclusive-end range as
// emitted by coq-lsp diagnostics into the half-open convention used
// everywhere else in this engine. coq-lsp's diagnostic ranges for a
// one-token command point at the last character of that token rather than
// one past it; every other range (AST spans from coq/getDocument) is
// already half-open. See _AuxFile.__get_queries in the Python original,
// which hand-slices "[start:end+1]" for exactly this reason.
func normalizeDiagnosticRange(r Range) Range {
	if r.Start.Line == r.End.Line {
		r.End.Character++
	}
	return r
}

// Diagnostic is an LSP diagnostic as pushed by textDocument/publishDiagnostics.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
}

// Severity levels per the LSP spec.
const (
	SeverityError       = 1
	SeverityWarning     = 2
	SeverityInformation = 3
	SeverityHint        = 4
)

// Hyp is one hypothesis line in a goal.
type Hyp struct {
	Names      []string `json:"names"`
	Ty         string   `json:"ty"`
	Definition *string  `json:"definition,omitempty"`
}

// Goal is a single proof obligation: its hypotheses and conclusion type.
type Goal struct {
	Hyps []Hyp  `json:"hyps"`
	Ty   string `json:"ty"`
}

// GoalPair is the (before, after) pair of goal lists used by GoalSnapshot's
// bullet stack: the goals still open at a shallower bullet depth, and the
// goals that depth will resume with once the current depth finishes.
type GoalPair struct {
	Before []Goal
	After  []Goal
}

// Message is a single info/warning/error message attached to a position.
type Message struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Range *Range `json:"range,omitempty"`
}

// GoalSnapshot captures the full proof state visible at a position: the
// spec's GoalSnapshot record (goals, bullet stack, shelf, given-up goals,
// current bullet, messages), plus the position/version it was taken at.
type GoalSnapshot struct {
	Goals    []Goal     `json:"goals"`
	Stack    []GoalPair `json:"stack"`
	Shelf    []Goal     `json:"shelf"`
	GivenUp  []Goal     `json:"given_up"`
	Bullet   *string    `json:"bullet,omitempty"`
	Messages []Message  `json:"messages"`
	Position Position   `json:"position"`
	Version  int        `json:"version"`
}

// rawGoalSnapshot mirrors the wire shape of coq-lsp's proof/goals response,
// which nests the goal config one level under "goals" and encodes the
// bullet stack as an array of 2-element [before, after] arrays.
type rawGoalSnapshot struct {
	TextDocument struct {
		Version int `json:"version"`
	} `json:"textDocument"`
	Position Position `json:"position"`
	Messages []rawMessageEnvelope `json:"messages"`
	Goals    *struct {
		Goals   []rawGoal     `json:"goals"`
		Stack   [][2][]rawGoal `json:"stack"`
		Shelf   []rawGoal     `json:"shelf"`
		GivenUp []rawGoal     `json:"given_up"`
		Bullet  *string       `json:"bullet"`
	} `json:"goals"`
}

type rawGoal struct {
	Hyps []rawHyp `json:"hyps"`
	Ty   string   `json:"ty"`
}

type rawHyp struct {
	Names []string `json:"names"`
	Ty    string   `json:"ty"`
	Def   *string  `json:"def,omitempty"`
}

// rawMessageEnvelope accepts either a plain string message or a structured
// {level, text, range} object, matching coq-lsp's loose messages encoding.
type rawMessageEnvelope struct {
	raw json.RawMessage
}

func (m *rawMessageEnvelope) UnmarshalJSON(data []byte) error {
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (m rawMessageEnvelope) toMessage() Message {
	var s string
	if json.Unmarshal(m.raw, &s) == nil {
		return Message{Text: s}
	}
	var full Message
	if json.Unmarshal(m.raw, &full) == nil {
		return full
	}
	return Message{Text: string(m.raw)}
}

func parseGoals(goals []rawGoal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		hyps := make([]Hyp, 0, len(g.Hyps))
		for _, h := range g.Hyps {
			hyps = append(hyps, Hyp{Names: h.Names, Ty: h.Ty, Definition: h.Def})
		}
		out = append(out, Goal{Hyps: hyps, Ty: g.Ty})
	}
	return out
}

// ParseGoalSnapshot decodes a proof/goals response body into a GoalSnapshot.
func ParseGoalSnapshot(data []byte) (*GoalSnapshot, error) {
	var raw rawGoalSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse proof/goals: %w", err)
	}
	snap := &GoalSnapshot{
		Position: raw.Position,
		Version:  raw.TextDocument.Version,
	}
	for _, m := range raw.Messages {
		snap.Messages = append(snap.Messages, m.toMessage())
	}
	if raw.Goals != nil {
		snap.Goals = parseGoals(raw.Goals.Goals)
		snap.Shelf = parseGoals(raw.Goals.Shelf)
		snap.GivenUp = parseGoals(raw.Goals.GivenUp)
		snap.Bullet = raw.Goals.Bullet
		for _, pair := range raw.Goals.Stack {
			snap.Stack = append(snap.Stack, GoalPair{
				Before: parseGoals(pair[0]),
				After:  parseGoals(pair[1]),
			})
		}
	}
	return snap, nil
}

// AstNodeKind tags the shape of an AstNode.
type AstNodeKind int

const (
	AstNull AstNodeKind = iota
	AstStr
	AstInt
	AstBool
	AstList
	AstMap
)

// AstKV is one key/value pair of an AstMap node, order-preserved.
type AstKV struct {
	Key   string
	Value AstNode
}

// AstNode is the dynamic, tagged-variant shape coq-lsp's AST serializer
// emits: every Coq AST node arrives as a JSON object, array, string, number,
// or null, and the ContextResolver walks it structurally without a static
// schema. See spec's Design Notes ("Dynamic AST walking").
type AstNode struct {
	Kind AstNodeKind
	Str  string
	Int  int64
	Bool bool
	List []AstNode
	Map  []AstKV
}

// IsTag reports whether n is a non-empty list whose first element is the
// string tag (e.g. "Ser_Qualid", "CNotation").
func (n AstNode) IsTag(tag string) bool {
	return n.Kind == AstList && len(n.List) > 0 && n.List[0].Kind == AstStr && n.List[0].Str == tag
}

func (n *AstNode) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeAstValue(dec)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func decodeAstValue(dec *json.Decoder) (AstNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return AstNode{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			var list []AstNode
			for dec.More() {
				v, err := decodeAstValue(dec)
				if err != nil {
					return AstNode{}, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return AstNode{}, err
			}
			return AstNode{Kind: AstList, List: list}, nil
		case '{':
			var kvs []AstKV
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return AstNode{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeAstValue(dec)
				if err != nil {
					return AstNode{}, err
				}
				kvs = append(kvs, AstKV{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return AstNode{}, err
			}
			return AstNode{Kind: AstMap, Map: kvs}, nil
		default:
			return AstNode{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return AstNode{Kind: AstStr, Str: t}, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return AstNode{Kind: AstInt, Int: i}, nil
		}
		return AstNode{Kind: AstStr, Str: t.String()}, nil
	case bool:
		return AstNode{Kind: AstBool, Bool: t}, nil
	case nil:
		return AstNode{Kind: AstNull}, nil
	default:
		return AstNode{}, fmt.Errorf("unexpected token %T", tok)
	}
}

// DocSpan is one entry of the FlecheDocument span list returned by
// coq/getDocument: a source range paired with its AST payload (Null for
// spans the server did not produce an AST for, e.g. whitespace-only gaps).
type DocSpan struct {
	Range Range   `json:"range"`
	Span  AstNode `json:"span"`
}

// FlecheDocument is the coq/getDocument response: an ordered list of spans
// covering the document.
type FlecheDocument struct {
	Spans []DocSpan `json:"spans"`
}
