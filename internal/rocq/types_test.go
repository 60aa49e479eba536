package rocq

import (
	"encoding/json"
	"testing"
)

func TestAstNodeDecodeScalarsAndList(t *testing.T) {
	var n AstNode
	if err := json.Unmarshal([]byte(`["Ser_Qualid", ["DirPath", []], ["Id","plus_O_n"]]`), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Kind != AstList || len(n.List) != 3 {
		t.Fatalf("expected 3-element list, got %+v", n)
	}
	if !n.IsTag("Ser_Qualid") {
		t.Fatalf("expected IsTag(Ser_Qualid) true")
	}
	tail := n.List[2]
	if tail.Kind != AstList || tail.List[1].Str != "plus_O_n" {
		t.Fatalf("expected tail id plus_O_n, got %+v", tail)
	}
}

func TestAstNodeDecodeMapPreservesOrder(t *testing.T) {
	var n AstNode
	if err := json.Unmarshal([]byte(`{"b":1,"a":2,"c":3}`), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Kind != AstMap || len(n.Map) != 3 {
		t.Fatalf("expected 3-entry map, got %+v", n)
	}
	wantKeys := []string{"b", "a", "c"}
	for i, kv := range n.Map {
		if kv.Key != wantKeys[i] {
			t.Fatalf("key %d: want %s got %s", i, wantKeys[i], kv.Key)
		}
	}
}

func TestAstNodeDecodeNullAndBool(t *testing.T) {
	var n AstNode
	if err := json.Unmarshal([]byte(`null`), &n); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if n.Kind != AstNull {
		t.Fatalf("expected AstNull, got %+v", n)
	}
	if err := json.Unmarshal([]byte(`true`), &n); err != nil {
		t.Fatalf("unmarshal bool: %v", err)
	}
	if n.Kind != AstBool || !n.Bool {
		t.Fatalf("expected AstBool true, got %+v", n)
	}
}

func TestNormalizeDiagnosticRangeSingleLine(t *testing.T) {
	r := normalizeDiagnosticRange(Range{
		Start: Position{Line: 3, Character: 2},
		End:   Position{Line: 3, Character: 9},
	})
	if r.End.Character != 10 {
		t.Fatalf("expected inclusive end normalized to 10, got %d", r.End.Character)
	}
}

func TestNormalizeDiagnosticRangeMultiLineUnchanged(t *testing.T) {
	r := normalizeDiagnosticRange(Range{
		Start: Position{Line: 3, Character: 2},
		End:   Position{Line: 5, Character: 9},
	})
	if r.End.Character != 9 {
		t.Fatalf("expected multi-line range unchanged, got %d", r.End.Character)
	}
}

func TestParseGoalSnapshot(t *testing.T) {
	body := []byte(`{
		"textDocument": {"version": 3},
		"position": {"line": 1, "character": 4},
		"messages": [],
		"goals": {
			"goals": [{"hyps": [{"names": ["n"], "ty": "nat"}], "ty": "0 + n = n"}],
			"stack": [],
			"shelf": [],
			"given_up": []
		}
	}`)
	snap, err := ParseGoalSnapshot(body)
	if err != nil {
		t.Fatalf("ParseGoalSnapshot: %v", err)
	}
	if len(snap.Goals) != 1 || snap.Goals[0].Ty != "0 + n = n" {
		t.Fatalf("unexpected goals: %+v", snap.Goals)
	}
	if len(snap.Goals[0].Hyps) != 1 || snap.Goals[0].Hyps[0].Ty != "nat" {
		t.Fatalf("unexpected hyps: %+v", snap.Goals[0].Hyps)
	}
	if snap.Version != 3 {
		t.Fatalf("expected version 3, got %d", snap.Version)
	}
}

func TestHandleDiagnosticsNormalizesAndBumpsGeneration(t *testing.T) {
	c := &CheckerClient{
		log:         NewLogger(false),
		diagnostics: make(map[string][]Diagnostic),
		diagGen:     make(map[string]int),
	}
	params, _ := json.Marshal(map[string]any{
		"uri": "file:///a.v",
		"diagnostics": []map[string]any{
			{
				"range": map[string]any{
					"start": map[string]any{"line": 1, "character": 0},
					"end":   map[string]any{"line": 1, "character": 5},
				},
				"severity": 1,
				"message":  "error",
			},
		},
	})
	c.handleDiagnostics(params)
	if c.currentGeneration("file:///a.v") != 1 {
		t.Fatalf("expected generation 1 after first push")
	}
	diags := c.Diagnostics("file:///a.v")
	if len(diags) != 1 || diags[0].Range.End.Character != 6 {
		t.Fatalf("expected normalized end character 6, got %+v", diags)
	}
}
