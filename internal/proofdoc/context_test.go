package proofdoc

import "testing"

func TestContextStoreLookupProbeOrder(t *testing.T) {
	store := NewContextStore()
	store.PushModule("M1")
	store.PushModule("M2")
	inner := store.Declare("x", KindDefinition, "f.v")
	store.PopModule()
	store.PopModule()
	store.PushModule("M1")
	outer := store.Declare("x", KindDefinition, "f.v")
	store.PopModule()
	top := store.Declare("x", KindDefinition, "f.v")

	got, ok := store.Lookup([]string{"M1", "M2"}, "x")
	if !ok || got != inner {
		t.Fatalf("expected innermost hit M1.M2.x, got %+v", got)
	}

	got, ok = store.Lookup([]string{"M1", "M3"}, "x")
	if !ok || got != outer {
		t.Fatalf("expected fallback hit M1.x, got %+v", got)
	}

	got, ok = store.Lookup(nil, "x")
	if !ok || got != top {
		t.Fatalf("expected unqualified hit x, got %+v", got)
	}
}

func TestContextStoreNotationNotFound(t *testing.T) {
	store := NewContextStore()
	if _, err := store.GetNotation("{ _ }", ""); err == nil {
		t.Fatalf("expected NotationNotFound error")
	} else if kind, ok := KindOf(err); !ok || kind != ErrNotationNotFound {
		t.Fatalf("expected ErrNotationNotFound, got %v", err)
	}
}

func TestContextStoreLocalMarking(t *testing.T) {
	store := NewContextStore()
	t1 := store.Declare("helper", KindDefinition, "f.v")
	store.MarkLocal(t1.QualifiedName())
	if !store.IsLocal(t1.QualifiedName()) {
		t.Fatalf("expected helper marked Local")
	}
}
