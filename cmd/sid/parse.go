package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sid-xyz/go-sid/parser"
)

func parse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	id := fs.String("id", "d1", "Diagram id to assign")
	file := fs.String("file", "", "Read the expression from a file instead of the argument")
	outputJSON := fs.Bool("json", false, "Output the diagram as JSON")
	outputFile := fs.String("output", "", "Write output to file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid parse "<expression>" [options]

Parse an operator expression into a diagram.

Operators:
  P(dof)      projection of a degree of freedom
  S+(x, ...)  positive polarity over one or more operands
  S-(x, ...)  negative polarity over one or more operands
  O(x)        collapse (irreversible)
  C(x, y)     coupling of exactly two operands
  T(x)        transport across a compartment boundary

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Print the canonical expression form
  sid parse "C(P(Freedom), S+(Gradient))"

  # Print the diagram as JSON
  sid parse "O(C(P(Focus), P(Depth)))" --json

  # Parse from a file and save the diagram
  sid parse --file expr.txt --json --output diagram.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	var text string
	switch {
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read expression: %w", err)
		}
		text = strings.TrimSpace(string(data))
	case fs.NArg() >= 1:
		text = fs.Arg(0)
	default:
		fs.Usage()
		return fmt.Errorf("expression required")
	}

	d, err := parser.ParseDiagram(*id, text)
	if err != nil {
		return err
	}

	var out []byte
	if *outputJSON {
		out, err = json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
	} else {
		expr, err := parser.DiagramToExpr(d)
		if err != nil {
			return err
		}
		out = []byte(expr.String())
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, append(out, '\n'), 0644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Diagram written to %s\n", *outputFile)
		return nil
	}
	fmt.Println(string(out))
	if !*outputJSON {
		fmt.Printf("%d nodes, %d edges\n", len(d.Nodes), len(d.Edges))
	}
	return nil
}
