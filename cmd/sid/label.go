package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

func label(args []string) error {
	fs := flag.NewFlagSet("label", flag.ExitOnError)
	stateID := fs.String("state", "", "State id to label (default: first state in the package)")
	strict := fs.Bool("strict", false, "Treat unknown predicates as hard failures")
	outputJSON := fs.Bool("json", false, "Output the labeled state as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid label <package.json> [options]

Assign I/N/U labels to a state's diagram and report admissibility.
I marks elements consistent with every constraint, N marks excluded
elements, U marks elements no constraint could resolve.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sid label package.json --state s1
  sid label package.json --state s1 --strict --json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("package file required")
	}

	pkg, err := parser.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	st, err := resolveState(pkg, *stateID)
	if err != nil {
		return err
	}
	d, ok := pkg.Diagram(st.DiagramID)
	if !ok {
		return fmt.Errorf("state %s references unknown diagram %q", st.ID, st.DiagramID)
	}

	opts := crf.Options{Strict: *strict}
	labeled := crf.AssignLabelsWith(opts, d, pkg.Constraints, st, pkg.CSIForState(st))

	if *outputJSON {
		data, err := json.MarshalIndent(labeled, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("=== Labels for state %s (diagram %s) ===\n", st.ID, d.ID)
	ids := make([]string, 0, len(labeled.Labels))
	for id := range labeled.Labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("  %-12s %s\n", id, labeled.Labels[id])
	}
	fmt.Println()

	ok, reason := crf.Admissible(labeled)
	if ok {
		fmt.Println("✓ State is admissible")
	} else {
		fmt.Printf("✗ State is not admissible: %s\n", reason)
	}
	if labeled.Halted {
		fmt.Printf("⚠ Halted: %s\n", labeled.HaltReason)
		os.Exit(1)
	}
	return nil
}

func resolveState(pkg *parser.Package, stateID string) (*diagram.State, error) {
	if stateID != "" {
		st, ok := pkg.State(stateID)
		if !ok {
			return nil, fmt.Errorf("unknown state %q", stateID)
		}
		return st, nil
	}
	if len(pkg.States) == 0 {
		return nil, fmt.Errorf("package has no states")
	}
	return pkg.States[0], nil
}
