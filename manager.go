package main

// manager.go — per-path ProofFile tracking behind a mutex, so more than one
// file can be open at once.

import (
	"fmt"
	"sync"

	"github.com/proofdoc/rocq-proofdoc/internal/proofdoc"
	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
	"go.uber.org/zap"
)

// Manager owns every currently-open ProofFile, keyed by the path it was
// opened with.
type Manager struct {
	cfg     rocq.Config
	log     *zap.SugaredLogger
	prelude bool

	mu    sync.Mutex
	files map[string]*proofdoc.ProofFile
}

// NewManager builds a Manager that opens every file against cfg.
func NewManager(cfg rocq.Config, log *zap.SugaredLogger, enablePrelude bool) *Manager {
	return &Manager{
		cfg:     cfg,
		log:     log,
		prelude: enablePrelude,
		files:   make(map[string]*proofdoc.ProofFile),
	}
}

func (m *Manager) newSession(rootURI string) (proofdoc.CheckerSession, error) {
	return rocq.NewCheckerClient(m.cfg, rootURI, m.log)
}

// Open opens path if not already open, returning the existing ProofFile if
// it is.
func (m *Manager) Open(path string) (*proofdoc.ProofFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pf, ok := m.files[path]; ok {
		return pf, nil
	}
	pf, err := proofdoc.Open(path, proofdoc.Options{
		Config:        m.cfg,
		NewSession:    m.newSession,
		EnablePrelude: m.prelude,
		Logger:        m.log,
	})
	if err != nil {
		return nil, err
	}
	m.files[path] = pf
	return pf, nil
}

// Get returns the already-open ProofFile for path, or an error if it was
// never opened.
func (m *Manager) Get(path string) (*proofdoc.ProofFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pf, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s is not open: call rocq_open first", path)
	}
	return pf, nil
}

// Close closes and forgets path's ProofFile.
func (m *Manager) Close(path string) error {
	m.mu.Lock()
	pf, ok := m.files[path]
	delete(m.files, path)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s is not open", path)
	}
	return pf.Close()
}

// Shutdown closes every still-open ProofFile. Errors are logged, not
// returned, so one stuck checker session cannot stop the others from
// shutting down.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	files := m.files
	m.files = make(map[string]*proofdoc.ProofFile)
	m.mu.Unlock()
	for path, pf := range files {
		if err := pf.Close(); err != nil {
			m.log.Warnw("close proof file during shutdown", "path", path, "error", err)
		}
	}
}

// findProof locates a proof (open or closed) by the step index its opener
// step sits at — the one stable identifier a ProofFile exposes across
// Facade calls without handing callers raw *Proof pointers over the wire.
func findProof(pf *proofdoc.ProofFile, startStep int) (*proofdoc.Proof, error) {
	for _, p := range pf.Proofs() {
		if p.StartStep == startStep {
			return p, nil
		}
	}
	for _, p := range pf.OpenProofs() {
		if p.StartStep == startStep {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no proof starting at step %d", startStep)
}
