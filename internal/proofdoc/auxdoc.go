package proofdoc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

// auxdoc.go — AuxDoc: a scratch mirror document used to issue Locate/Print
// queries without perturbing the real document.

const locateSuffix = " (default interpretation)"

// AuxDoc owns a scratch file and a dedicated checker session over it. It is
// always a distinct subprocess from the main document's session.
type AuxDoc struct {
	session CheckerSession
	uri     string
	path    string
	version int
	lines   []string // in-memory mirror, one entry per appended logical line
}

// NewSessionFunc starts a fresh CheckerSession rooted at rootURI; supplied
// by the caller so AuxDoc never hardcodes how a session is constructed
// (tests inject a fake, production injects rocq.NewCheckerClient).
type NewSessionFunc func(rootURI string) (CheckerSession, error)

// OpenAuxDoc creates a uniquely-named scratch file under dir, seeds it with
// source if non-empty, opens it in a fresh checker session at version 1,
// and returns the AuxDoc.
func OpenAuxDoc(dir, source string, newSession NewSessionFunc) (*AuxDoc, error) {
	name := fmt.Sprintf("proofdoc-aux-%s.v", uuid.NewString())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("write aux scratch file: %w", err)
	}
	uri := "file://" + path

	session, err := newSession(uri)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("open aux checker session: %w", err)
	}

	a := &AuxDoc{session: session, uri: uri, path: path, version: 1}
	var lines []string
	if source != "" {
		lines = splitLines(source)
	}
	a.lines = lines
	if err := session.DidOpen(uri, source); err != nil {
		_ = session.Shutdown()
		os.Remove(path)
		return nil, err
	}
	return a, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// NextLine returns the 0-based line index text appended via Append would
// start at, without mutating state — used by the resolver to plan Locate
// queries before the aux document's text is actually synchronized.
func (a *AuxDoc) NextLine() int {
	return len(a.lines)
}

// Append adds text to the scratch file's in-memory mirror without
// resynchronizing the checker. Each call's text is treated as a whole
// logical line (callers append one directive or one step's text at a time).
func (a *AuxDoc) Append(text string) {
	if !endsWithNewline(text) {
		text += "\n"
	}
	a.lines = append(a.lines, text)
}

func endsWithNewline(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '\n'
}

// Text returns the current in-memory mirror text.
func (a *AuxDoc) Text() string {
	var out []byte
	for _, l := range a.lines {
		out = append(out, l...)
	}
	return string(out)
}

// Sync increments the version, pushes a full-document change, and waits for
// the checker to finish processing.
func (a *AuxDoc) Sync() error {
	a.version++
	if err := os.WriteFile(a.path, []byte(a.Text()), 0o600); err != nil {
		return fmt.Errorf("rewrite aux scratch file: %w", err)
	}
	return a.session.DidChange(a.uri, a.version, a.Text())
}

// LocateQuery finds, among the aux document's current diagnostics, the one
// whose range starts at expectedLine and whose command text (the source
// slice spanned by the diagnostic, trimmed) equals "{kind} {arg}.", then
// returns its message. Returns ("", false) if no such diagnostic exists;
// Locate failures are non-fatal to the caller.
func (a *AuxDoc) LocateQuery(kind, arg string, expectedLine int) (string, bool) {
	want := fmt.Sprintf("%s %s.", kind, arg)
	for _, d := range a.session.Diagnostics(a.uri) {
		if d.Range.Start.Line != expectedLine {
			continue
		}
		if commandText(a.lines, d.Range) != want {
			continue
		}
		return d.Message, true
	}
	return "", false
}

// commandText extracts the trimmed source slice a diagnostic range covers
// from the in-memory mirror lines, used to match a Locate diagnostic back
// to the directive that produced it.
func commandText(lines []string, r rocq.Range) string {
	if r.Start.Line < 0 || r.Start.Line >= len(lines) {
		return ""
	}
	line := lines[r.Start.Line]
	start := r.Start.Character
	end := r.End.Character
	if start < 0 {
		start = 0
	}
	if end > len(line) {
		end = len(line)
	}
	if start > end {
		return ""
	}
	return trimSpace(line[start:end])
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// DisambiguateLocate picks a single result out of a (possibly multi-line)
// Locate response: if the checker returns multiple lines, take the one
// suffixed with "(default interpretation)" and strip the suffix; otherwise
// take the sole line, stripping the suffix iff present.
func DisambiguateLocate(message string) string {
	lines := splitLinesSimple(message)
	if len(lines) == 1 {
		return stripDefaultSuffix(lines[0])
	}
	for _, l := range lines {
		if hasDefaultSuffix(l) {
			return stripDefaultSuffix(l)
		}
	}
	return lines[0]
}

func splitLinesSimple(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func hasDefaultSuffix(s string) bool {
	return len(s) >= len(locateSuffix) && s[len(s)-len(locateSuffix):] == locateSuffix
}

func stripDefaultSuffix(s string) string {
	if hasDefaultSuffix(s) {
		return s[:len(s)-len(locateSuffix)]
	}
	return s
}

// Close shuts down the aux checker session and removes the scratch file on
// every exit path.
func (a *AuxDoc) Close() error {
	err := a.session.Shutdown()
	_ = os.Remove(a.path)
	return err
}
