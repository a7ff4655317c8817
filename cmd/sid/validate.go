package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/validation"
)

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	outputJSON := fs.Bool("json", false, "Output results as JSON")
	outputFile := fs.String("output", "", "Write JSON results to file")
	labels := fs.Bool("labels", false, "Run the admissibility probe over every state")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid validate <package.json> [options]

Validate a package of diagrams, states, constraints, and rewrite rules.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Checks performed:
  - Declaration integrity (duplicate ids, duplicate compartment indexes)
  - Cross references (diagrams, states, spheres, compartments, DOFs)
  - Diagram structure (arity, irreversible collapse, illegal cycles)
  - Causal sphere membership and pair restrictions
  - Constraint predicates against the frozen registry
  - Rewrite rule patterns, flagging identity rules
  - Labeling probe (with --labels): excluded and unresolved elements
    per state, plus overall admissibility

Examples:
  # Basic validation
  sid validate package.json

  # Include the labeling probe
  sid validate package.json --labels

  # Save validation report
  sid validate package.json --labels --json --output report.json
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

	validator := validation.NewValidator(pkg)
	var result *validation.Result
	if *labels {
		result = validator.ValidateWithLabels()
	} else {
		result = validator.Validate()
	}

	if *outputJSON || *outputFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if *outputFile != "" {
			if err := os.WriteFile(*outputFile, data, 0644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Validation results written to %s\n", *outputFile)
		} else {
			fmt.Println(string(data))
		}
	} else {
		printValidationResults(result)
	}

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func printValidationResults(result *validation.Result) {
	fmt.Println("=== Package Validation ===")
	fmt.Printf("Package: %d dofs, %d compartments, %d spheres, %d diagrams, %d states, %d constraints, %d rules\n",
		result.Summary.DOFs,
		result.Summary.Compartments,
		result.Summary.CSIs,
		result.Summary.Diagrams,
		result.Summary.States,
		result.Summary.Constraints,
		result.Summary.Rules)
	fmt.Println()

	printIssues("Errors", "✗", result.Errors)
	printIssues("Warnings", "⚠", result.Warnings)
	printIssues("Info", "ℹ", result.Info)

	fmt.Println("───────────────────────────────────")
	if result.Valid {
		fmt.Println("✓ Validation PASSED")
	} else {
		fmt.Println("✗ Validation FAILED")
		fmt.Printf("  %d error(s) must be fixed\n", len(result.Errors))
	}
}

func printIssues(title, mark string, issues []validation.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", title, len(issues))
	for _, issue := range issues {
		fmt.Printf("  %s [%s] %s\n", mark, issue.Category, issue.Message)
		if len(issue.Location) > 0 {
			fmt.Printf("    Location: %v\n", issue.Location)
		}
		if issue.Suggestion != "" {
			fmt.Printf("    Suggestion: %s\n", issue.Suggestion)
		}
		fmt.Println()
	}
}
