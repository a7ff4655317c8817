package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sid-xyz/go-sid/config"
	"github.com/sid-xyz/go-sid/engine"
	"github.com/sid-xyz/go-sid/eventlog"
	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/storage"
)

func run(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "", "YAML configuration file")
	stateID := fs.String("state", "", "State id to run (default: first state in the package)")
	maxIterations := fs.Int("max-iterations", 0, "Maximum pipeline iterations (overrides config)")
	tolerance := fs.Float64("tolerance", 0, "Loop-gain convergence tolerance (overrides config)")
	requireAll := fs.Bool("require-all", false, "Require every stability condition")
	strict := fs.Bool("strict", false, "Treat unknown predicates as hard failures")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	eventsFile := fs.String("events", "", "Write the run's event stream to a JSONL file")
	dbFile := fs.String("db", "", "Persist the run to a SQLite database")
	outputJSON := fs.Bool("json", false, "Output the outcome as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid run <package.json> [options]

Execute the full resolution pipeline for one state: labeling,
authorized rewriting with conflict resolution, and stability checking,
iterated until the state stabilizes, halts, or runs out of budget.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sid run package.json --state s1
  sid run package.json --state s1 --events run.jsonl --db runs.db
  sid run --config sid.yaml
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return err
		}
	}
	if fs.NArg() >= 1 {
		cfg.Package = fs.Arg(0)
	}
	if cfg.Package == "" {
		fs.Usage()
		return fmt.Errorf("package file required")
	}
	if *stateID != "" {
		cfg.State = *stateID
	}
	if *maxIterations > 0 {
		cfg.MaxIterations = *maxIterations
	}
	if *tolerance > 0 {
		cfg.Tolerance = *tolerance
	}
	if *requireAll {
		cfg.RequireAll = true
	}
	if *strict {
		cfg.Strict = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *eventsFile != "" {
		cfg.EventLog = *eventsFile
	}
	if *dbFile != "" {
		cfg.Database = *dbFile
	}

	pkg, err := parser.LoadFile(cfg.Package)
	if err != nil {
		return err
	}
	st, err := resolveState(pkg, cfg.State)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	log := eventlog.NewLog()
	outcome, err := engine.RunPackage(context.Background(), pkg, st.ID, engine.Options{
		MaxIterations: cfg.MaxIterations,
		MaxMatches:    cfg.MaxMatches,
		Tolerance:     cfg.Tolerance,
		RequireAll:    cfg.RequireAll,
		Strict:        cfg.Strict,
		Logger:        &logger,
		Log:           log,
	})
	if err != nil {
		return err
	}

	if cfg.EventLog != "" {
		if err := log.SaveJSONL(cfg.EventLog); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Event stream written to %s\n", cfg.EventLog)
	}
	if cfg.Database != "" {
		store, err := storage.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(outcome, st.ID, log); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Run %s persisted to %s\n", outcome.RunID, cfg.Database)
	}

	if *outputJSON {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printOutcome(outcome)
	}

	if outcome.Halted {
		os.Exit(2)
	}
	if !outcome.Stable {
		os.Exit(1)
	}
	return nil
}

func printOutcome(out *engine.Outcome) {
	fmt.Println("=== Run ===")
	fmt.Printf("Run id:     %s\n", out.RunID)
	fmt.Printf("Iterations: %d\n", out.Iterations)
	for _, cond := range out.Report.Conditions {
		mark := "✗"
		if cond.Satisfied {
			mark = "✓"
		}
		fmt.Printf("  %s %-24s %s\n", mark, cond.Name, cond.Explanation)
	}
	if out.Metrics != nil {
		fmt.Printf("Metrics: admissible_volume=%.4f collapse_ratio=%.4f gradient_coherence=%.4f transport_fidelity=%.4f loop_gain=%.4f\n",
			out.Metrics.AdmissibleVolume,
			out.Metrics.CollapseRatio,
			out.Metrics.GradientCoherence,
			out.Metrics.TransportFidelity,
			out.Metrics.LoopGain)
	}
	switch {
	case out.Halted:
		fmt.Printf("✗ HALTED: %s\n", out.State.HaltReason)
	case out.Stable:
		fmt.Println("✓ STABLE")
	case out.BudgetExhausted:
		fmt.Println("⚠ Iteration budget exhausted before stability")
	}
}
