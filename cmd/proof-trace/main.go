// Command proof-trace steps through every step boundary of a .v file and
// prints the step text, goal state, and diagnostics at each one.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/proofdoc/rocq-proofdoc/internal/proofdoc"
	"github.com/proofdoc/rocq-proofdoc/internal/rocq"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: proof-trace <file.v> [--binary path]\n")
		os.Exit(1)
	}
	file := os.Args[1]
	binary := ""
	for i, arg := range os.Args[2:] {
		if arg == "--binary" && i+3 <= len(os.Args) {
			binary = os.Args[i+3]
		}
	}

	cfg, err := rocq.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if binary != "" {
		cfg.Binary = binary
	}
	logger := rocq.NewLogger(false)

	pf, err := proofdoc.Open(file, proofdoc.Options{
		Config: cfg,
		NewSession: func(rootURI string) (proofdoc.CheckerSession, error) {
			return rocq.NewCheckerClient(cfg, rootURI, logger)
		},
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer pf.Close()

	// Open leaves the document fully advanced; rewind to the start so the
	// loop below visits every step boundary.
	if err := pf.Exec(-pf.StepsTaken()); err != nil {
		log.Fatalf("rewind: %v", err)
	}

	total := len(pf.Steps())
	step := 0
	for pf.StepsTaken() < total {
		if err := pf.Exec(1); err != nil {
			log.Fatalf("exec: %v", err)
		}
		step++

		steps := pf.Steps()
		idx := pf.StepsTaken() - 1
		fmt.Printf("=== Step %d ===\n", step)
		if idx >= 0 && idx < len(steps) {
			fmt.Printf("> %s\n", strings.TrimSpace(steps[idx].Text))
		}
		fmt.Println()

		goals, err := pf.CurrentGoals()
		if err != nil {
			fmt.Printf("(goal query failed: %v)\n", err)
		} else {
			fmt.Print(rocq.FormatGoals(goals))
		}

		if diags := pf.Diagnostics(); len(diags) > 0 {
			fmt.Printf("\nDiagnostics (%d):\n", len(diags))
			fmt.Print(rocq.FormatDiagnostics(diags))
		}
		fmt.Println()
	}

	fmt.Printf("--- Done: %d steps ---\n", step)
}
