package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sid-xyz/go-sid/storage"
)

func export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbFile := fs.String("db", "", "SQLite database written by sid run")
	runID := fs.String("run", "", "Run id to export")
	list := fs.Bool("list", false, "List stored runs instead of exporting")
	limit := fs.Int("limit", 50, "Maximum runs to list")
	format := fs.String("format", "jsonl", "Export format: jsonl or csv")
	outputFile := fs.String("output", "", "Write output to file instead of stdout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid export --db <runs.db> (--list | --run <id>) [options]

Export recorded run events from a database, or list the stored runs.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sid export --db runs.db --list
  sid export --db runs.db --run 9b2d... --format csv --output run.csv
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbFile == "" {
		fs.Usage()
		return fmt.Errorf("--db required")
	}
	store, err := storage.Open(*dbFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if *list {
		runs, err := store.ListRuns(*limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		fmt.Printf("%-36s  %-10s  %-10s  %5s  %s\n", "RUN", "STATE", "DIAGRAM", "ITERS", "STATUS")
		for _, r := range runs {
			status := "budget"
			switch {
			case r.Halted:
				status = "halted"
			case r.Stable:
				status = "stable"
			}
			fmt.Printf("%-36s  %-10s  %-10s  %5d  %s\n", r.ID, r.StateID, r.DiagramID, r.Iterations, status)
		}
		return nil
	}

	if *runID == "" {
		fs.Usage()
		return fmt.Errorf("--run or --list required")
	}
	log, err := store.Events(*runID)
	if err != nil {
		return err
	}
	if log.Len() == 0 {
		return fmt.Errorf("no events recorded for run %s", *runID)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch *format {
	case "jsonl":
		err = log.WriteJSONL(out)
	case "csv":
		err = log.WriteCSV(out)
	default:
		return fmt.Errorf("unknown format %q (want jsonl or csv)", *format)
	}
	if err != nil {
		return err
	}
	if *outputFile != "" {
		fmt.Fprintf(os.Stderr, "%d events written to %s\n", log.Len(), *outputFile)
	}
	return nil
}
