package rocq

// config.go — checker init options and the logger every other package in
// this module shares, overridable from a YAML config file.

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// InitOptions mirrors coq-lsp's documented initializationOptions.
type InitOptions struct {
	MaxErrors                 int  `yaml:"max_errors"`
	EagerDiagnostics          bool `yaml:"eager_diagnostics"`
	ShowCoqInfoMessages       bool `yaml:"show_coq_info_messages"`
	ShowNoticesAsDiagnostics  bool `yaml:"show_notices_as_diagnostics"`
	Debug                     bool `yaml:"debug"`
	PpType                    int  `yaml:"pp_type"`
}

// DefaultInitOptions returns the documented coq-lsp defaults.
func DefaultInitOptions() InitOptions {
	return InitOptions{
		MaxErrors:                120000000,
		EagerDiagnostics:         false,
		ShowCoqInfoMessages:      true,
		ShowNoticesAsDiagnostics: false,
		Debug:                    false,
		PpType:                   1,
	}
}

// Config bundles everything a CheckerClient needs to launch and talk to
// coq-lsp, plus the per-call timeout budget.
type Config struct {
	Binary      string        `yaml:"binary"`
	ExtraArgs   []string      `yaml:"extra_args"`
	InitOptions InitOptions   `yaml:"init_options"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the documented defaults with coq-lsp as the binary
// and a generous timeout for interactive use.
func DefaultConfig() Config {
	return Config{
		Binary:      "coq-lsp",
		InitOptions: DefaultInitOptions(),
		Timeout:     60 * time.Second,
	}
}

// LoadConfig reads a YAML config file and overlays it on DefaultConfig. A
// missing path is not an error: the documented defaults apply verbatim.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Binary == "" {
		cfg.Binary = "coq-lsp"
	}
	return cfg, nil
}

// NewLogger builds the shared structured logger. debug=true switches to a
// development encoder (human-readable, caller-annotated); otherwise a
// production JSON encoder suitable for piping alongside stdio-framed LSP
// traffic without interleaving badly.
func NewLogger(debug bool) *zap.SugaredLogger {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}
