package rocq

// session.go — coq-lsp subprocess management: the initialize/didOpen/
// didChange handshake, the proof/goals, coq/getDocument, and coq/saveVo
// custom requests, and a cache of pushed diagnostics per URI.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrServerQuit is returned when the checker process died or a blocking
// operation exceeded its timeout budget. It is fatal to the owning
// CheckerClient: callers must construct a new one.
var ErrServerQuit = errors.New("checker: server quit or timed out")

// CheckerClient manages a coq-lsp subprocess and its LSP communication.
type CheckerClient struct {
	cfg Config
	log *zap.SugaredLogger

	cmd   *exec.Cmd
	codec *lspCodec

	pending   map[int64]chan *rawMessage
	pendingMu sync.Mutex

	handlers   map[string]func(json.RawMessage)
	handlersMu sync.RWMutex

	diagMu      sync.Mutex
	diagnostics map[string][]Diagnostic
	diagGen     map[string]int

	shutdownOnce sync.Once
	dead         bool
	deadMu       sync.Mutex
}

// NewCheckerClient starts the configured checker binary as a subprocess and
// performs the initialize/initialized handshake against rootURI.
func NewCheckerClient(cfg Config, rootURI string, log *zap.SugaredLogger) (*CheckerClient, error) {
	if log == nil {
		log = NewLogger(false)
	}
	cmd := exec.Command(cfg.Binary, cfg.ExtraArgs...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Binary, err)
	}

	c := &CheckerClient{
		cfg:         cfg,
		log:         log,
		cmd:         cmd,
		codec:       newLSPCodec(stdout, stdin),
		pending:     make(map[int64]chan *rawMessage),
		handlers:    make(map[string]func(json.RawMessage)),
		diagnostics: make(map[string][]Diagnostic),
		diagGen:     make(map[string]int),
	}
	c.onNotification("textDocument/publishDiagnostics", c.handleDiagnostics)

	go c.readLoop()

	if err := c.initialize(rootURI); err != nil {
		return nil, err
	}
	return c, nil
}

// readLoop reads messages from the checker and dispatches them.
func (c *CheckerClient) readLoop() {
	for {
		msg, err := c.codec.decode()
		if err != nil {
			c.log.Debugw("checker read loop ended", "error", err)
			c.markDead()
			return
		}

		switch {
		case msg.ID != nil && msg.Method == nil:
			c.pendingMu.Lock()
			ch, ok := c.pending[*msg.ID]
			if ok {
				delete(c.pending, *msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.ID != nil && msg.Method != nil:
			c.handleServerRequest(*msg.ID, *msg.Method, msg.Params)
		case msg.Method != nil:
			c.handlersMu.RLock()
			handler, ok := c.handlers[*msg.Method]
			c.handlersMu.RUnlock()
			if ok {
				handler(msg.Params)
			} else {
				c.log.Debugw("unhandled notification", "method", *msg.Method)
			}
		}
	}
}

func (c *CheckerClient) markDead() {
	c.deadMu.Lock()
	c.dead = true
	c.deadMu.Unlock()
}

func (c *CheckerClient) isDead() bool {
	c.deadMu.Lock()
	defer c.deadMu.Unlock()
	return c.dead
}

// handleServerRequest responds to server→client requests. coq-lsp does not
// require any particular answer for the ones it may send (e.g.
// workspace/configuration), so the default response is a null result.
func (c *CheckerClient) handleServerRequest(id int64, method string, params json.RawMessage) {
	if err := c.codec.encode(&jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  json.RawMessage("null"),
	}); err != nil {
		c.log.Warnw("send default response", "method", method, "error", err)
	}
}

func (c *CheckerClient) request(method string, params any) (json.RawMessage, error) {
	if c.isDead() {
		return nil, ErrServerQuit
	}
	ch := make(chan *rawMessage, 1)
	id := c.codec.nextID.Add(1) - 1
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	var rawParams json.RawMessage
	if params != nil {
		var err error
		rawParams, err = json.Marshal(params)
		if err != nil {
			c.pendingMu.Lock()
			delete(c.pending, id)
			c.pendingMu.Unlock()
			return nil, err
		}
	}
	if err := c.codec.encode(&jsonRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("checker error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-time.After(c.cfg.Timeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		c.forceShutdown()
		return nil, ErrServerQuit
	}
}

func (c *CheckerClient) notify(method string, params any) error {
	if c.isDead() {
		return ErrServerQuit
	}
	return c.codec.sendNotification(method, params)
}

func (c *CheckerClient) onNotification(method string, handler func(json.RawMessage)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[method] = handler
}

func (c *CheckerClient) initialize(rootURI string) error {
	opts := c.cfg.InitOptions
	params := map[string]any{
		"processId": os.Getpid(),
		"rootPath":  "",
		"rootUri":   rootURI,
		"initializationOptions": map[string]any{
			"max_errors":                  opts.MaxErrors,
			"eager_diagnostics":           opts.EagerDiagnostics,
			"show_coq_info_messages":      opts.ShowCoqInfoMessages,
			"show_notices_as_diagnostics": opts.ShowNoticesAsDiagnostics,
			"debug":                       opts.Debug,
			"pp_type":                     opts.PpType,
		},
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"publishDiagnostics": map[string]any{},
			},
		},
		"trace": "off",
		"workspaceFolders": []map[string]any{
			{"name": "coq-lsp", "uri": rootURI},
		},
	}
	if _, err := c.request("initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.notify("initialized", map[string]any{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

// currentGeneration returns the number of diagnostics pushes observed for
// uri so far; waitForOperation uses it to detect the checker finishing the
// operation just issued.
func (c *CheckerClient) currentGeneration(uri string) int {
	c.diagMu.Lock()
	defer c.diagMu.Unlock()
	return c.diagGen[uri]
}

// waitForOperation polls in ~100ms increments until a new diagnostics push
// for uri is observed or the configured timeout elapses. On timeout it
// shuts the checker down and returns ErrServerQuit: the CheckerClient is
// not recoverable after that and callers must construct a new one.
func (c *CheckerClient) waitForOperation(uri string, startGen int) error {
	remaining := c.cfg.Timeout
	const step = 100 * time.Millisecond
	for remaining > 0 {
		time.Sleep(step)
		remaining -= step
		if c.isDead() {
			return ErrServerQuit
		}
		if c.currentGeneration(uri) != startGen {
			return nil
		}
	}
	c.forceShutdown()
	return ErrServerQuit
}

func (c *CheckerClient) forceShutdown() {
	c.shutdownOnce.Do(func() {
		c.markDead()
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	})
}

// DidOpen opens uri in the checker with the given initial content.
func (c *CheckerClient) DidOpen(uri, text string) error {
	gen := c.currentGeneration(uri)
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": "rocq",
			"version":    1,
			"text":       text,
		},
	}
	if err := c.notify("textDocument/didOpen", params); err != nil {
		return err
	}
	return c.waitForOperation(uri, gen)
}

// DidChange submits a full-document replacement at the given version.
func (c *CheckerClient) DidChange(uri string, version int, text string) error {
	gen := c.currentGeneration(uri)
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":     uri,
			"version": version,
		},
		"contentChanges": []map[string]any{
			{"text": text},
		},
	}
	if err := c.notify("textDocument/didChange", params); err != nil {
		return err
	}
	return c.waitForOperation(uri, gen)
}

// DidClose closes uri in the checker.
func (c *CheckerClient) DidClose(uri string) error {
	return c.notify("textDocument/didClose", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
}

// ProofGoals requests the goal state at position for the given document
// version (the custom proof/goals method).
func (c *CheckerClient) ProofGoals(uri string, version int, pos Position) (*GoalSnapshot, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": uri, "version": version},
		"position":     pos,
	}
	result, err := c.request("proof/goals", params)
	if err != nil {
		return nil, err
	}
	return ParseGoalSnapshot(result)
}

// GetDocument requests the Fleche AST document (the custom coq/getDocument
// method) that the Segmenter consumes.
func (c *CheckerClient) GetDocument(uri string) (*FlecheDocument, error) {
	result, err := c.request("coq/getDocument", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
	if err != nil {
		return nil, err
	}
	var doc FlecheDocument
	if err := json.Unmarshal(result, &doc); err != nil {
		return nil, fmt.Errorf("parse coq/getDocument: %w", err)
	}
	return &doc, nil
}

// SaveVo requests the checker compile and save a .vo artifact for uri (the
// custom coq/saveVo method).
func (c *CheckerClient) SaveVo(uri string) error {
	_, err := c.request("coq/saveVo", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
	return err
}

// Diagnostics returns the latest diagnostics snapshot pushed for uri.
func (c *CheckerClient) Diagnostics(uri string) []Diagnostic {
	c.diagMu.Lock()
	defer c.diagMu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics[uri]))
	copy(out, c.diagnostics[uri])
	return out
}

func (c *CheckerClient) handleDiagnostics(params json.RawMessage) {
	var p struct {
		URI         string       `json:"uri"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		c.log.Warnw("parse publishDiagnostics", "error", err)
		return
	}
	for i := range p.Diagnostics {
		p.Diagnostics[i].Range = normalizeDiagnosticRange(p.Diagnostics[i].Range)
	}
	c.diagMu.Lock()
	c.diagnostics[p.URI] = p.Diagnostics
	c.diagGen[p.URI]++
	c.diagMu.Unlock()
}

// Shutdown performs the LSP shutdown/exit sequence and waits for the
// subprocess to terminate.
func (c *CheckerClient) Shutdown() error {
	if c.isDead() {
		return nil
	}
	if _, err := c.request("shutdown", nil); err != nil {
		c.forceShutdown()
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := c.notify("exit", nil); err != nil {
		c.forceShutdown()
		return fmt.Errorf("exit: %w", err)
	}
	return c.cmd.Wait()
}
