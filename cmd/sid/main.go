package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "parse":
		if err := parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "label":
		if err := label(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "rewrite":
		if err := rewriteCmd(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "stability":
		if err := stabilityCmd(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "run":
		if err := run(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "visualize":
		if err := visualize(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := export(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("sid version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sid - diagram rewriting and constraint resolution tool

Usage:
  sid <command> [options]

Commands:
  parse      Parse an operator expression into a diagram
  validate   Validate a package of diagrams, states, and rules
  label      Assign I/N/U labels to a state's diagram
  rewrite    Apply rewrite rules until a fixed point or budget
  stability  Check stability conditions and compute metrics
  run        Execute the full resolution pipeline
  visualize  Render a diagram as SVG
  export     Export recorded run events from a database
  help       Show this help message
  version    Show version information

Examples:
  # Parse an expression and print the diagram
  sid parse "C(P(Freedom), S+(Gradient))"

  # Validate a package including the labeling probe
  sid validate package.json --labels

  # Run the pipeline and record events
  sid run package.json --state s1 --events run.jsonl

  # Export a stored run as CSV
  sid export --db runs.db --run <run-id> --format csv

For command-specific help, run:
  sid <command> --help`)
}
