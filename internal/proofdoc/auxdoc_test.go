package proofdoc

import (
	"testing"

	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

func TestOpenAuxDocSeedsSourceAndOpensSession(t *testing.T) {
	dir := t.TempDir()
	var opened string
	session := newFakeSession()
	aux, err := OpenAuxDoc(dir, "Definition x := 1.\n", func(rootURI string) (CheckerSession, error) {
		opened = rootURI
		return session, nil
	})
	if err != nil {
		t.Fatalf("OpenAuxDoc: %v", err)
	}
	defer aux.Close()
	if opened == "" {
		t.Fatalf("expected newSession to be called with a root URI")
	}
	if got := session.opened[aux.uri]; got != "Definition x := 1.\n" {
		t.Fatalf("expected seeded source opened, got %q", got)
	}
	if aux.NextLine() != 1 {
		t.Fatalf("expected 1 seeded line, got %d", aux.NextLine())
	}
}

func TestAuxDocAppendAndLocateQuery(t *testing.T) {
	dir := t.TempDir()
	session := newFakeSession()
	aux, err := OpenAuxDoc(dir, "", func(string) (CheckerSession, error) { return session, nil })
	if err != nil {
		t.Fatalf("OpenAuxDoc: %v", err)
	}
	defer aux.Close()

	line := aux.NextLine()
	aux.Append(`Locate "plus".`)
	if err := aux.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	session.diagnostics[aux.uri] = []rocq.Diagnostic{
		{Range: rng(line, 0, line, len(`Locate "plus".`)), Message: "Notation (default interpretation)"},
	}

	msg, ok := aux.LocateQuery("Locate", `"plus"`, line)
	if !ok {
		t.Fatalf("expected LocateQuery to find the diagnostic")
	}
	if msg != "Notation (default interpretation)" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestAuxDocLocateQueryMissNonFatal(t *testing.T) {
	dir := t.TempDir()
	session := newFakeSession()
	aux, err := OpenAuxDoc(dir, "", func(string) (CheckerSession, error) { return session, nil })
	if err != nil {
		t.Fatalf("OpenAuxDoc: %v", err)
	}
	defer aux.Close()

	if _, ok := aux.LocateQuery("Locate", `"nope"`, 0); ok {
		t.Fatalf("expected no match on empty diagnostics")
	}
}
