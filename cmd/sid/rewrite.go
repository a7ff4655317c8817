package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/rewrite"
)

func rewriteCmd(args []string) error {
	fs := flag.NewFlagSet("rewrite", flag.ExitOnError)
	stateID := fs.String("state", "", "State id to rewrite (default: first state in the package)")
	maxIterations := fs.Int("max-iterations", rewrite.DefaultMaxIterations, "Maximum rule applications")
	maxMatches := fs.Int("max-matches", rewrite.DefaultMaxMatches, "Maximum matches enumerated per rule")
	strict := fs.Bool("strict", false, "Treat unknown predicates as hard failures")
	outputJSON := fs.Bool("json", false, "Output the result as JSON")
	outputFile := fs.String("output", "", "Write the resulting package to file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid rewrite <package.json> [options]

Apply the package's rewrite rules to a state's diagram until no rule
matches, the iteration budget runs out, or a hard violation halts the
process. Every application is authorized against the constraints
before it lands; denials go through conflict resolution.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sid rewrite package.json --state s1
  sid rewrite package.json --state s1 --max-iterations 50
  sid rewrite package.json --state s1 --output rewritten.json
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

	result, err := rewrite.Run(d, st, pkg.CSIForState(st), pkg.Rules, pkg.Constraints, rewrite.RunOptions{
		MaxIterations: *maxIterations,
		MaxMatches:    *maxMatches,
		Strict:        *strict,
	})
	if err != nil {
		return err
	}

	if *outputJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printRewriteResult(result)
	}

	if *outputFile != "" {
		for i, pd := range pkg.Diagrams {
			if pd.ID == result.Diagram.ID {
				pkg.Diagrams[i] = result.Diagram
			}
		}
		for i, ps := range pkg.States {
			if ps.ID == result.State.ID {
				pkg.States[i] = result.State
			}
		}
		if err := parser.SaveFile(*outputFile, pkg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Rewritten package written to %s\n", *outputFile)
	}
	return nil
}

func printRewriteResult(result *rewrite.RunResult) {
	fmt.Println("=== Rewrite ===")
	fmt.Printf("Iterations: %d\n", result.Iterations)
	for _, app := range result.Applications {
		fmt.Printf("  %3d. rule %s touched %v\n", app.Iteration, app.RuleID, app.Touched)
	}
	for _, msg := range result.Messages {
		fmt.Printf("  note: %s\n", msg)
	}
	if expr, err := parser.DiagramToExpr(result.Diagram); err == nil {
		fmt.Printf("Result: %s\n", expr.String())
	} else {
		fmt.Printf("Result: %d nodes, %d edges\n", len(result.Diagram.Nodes), len(result.Diagram.Edges))
	}
	switch {
	case result.Halted:
		fmt.Println("✗ Halted on a hard violation")
	case result.BudgetExhausted:
		fmt.Println("⚠ Iteration budget exhausted before a fixed point")
	case result.FixedPoint:
		fmt.Println("✓ Fixed point reached")
	}
}
