package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/viz"
)

func visualize(args []string) error {
	fs := flag.NewFlagSet("visualize", flag.ExitOnError)
	diagramID := fs.String("diagram", "", "Diagram id to render (default: first diagram in the package)")
	stateID := fs.String("state", "", "Color nodes by this state's I/N/U labels")
	expr := fs.String("expr", "", "Render an expression instead of a package file")
	edgeLabels := fs.Bool("edge-labels", false, "Show edge labels")
	outputFile := fs.String("output", "", "Output SVG file (default: <diagram>.svg)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sid visualize <package.json> [options]
       sid visualize --expr "<expression>" [options]

Render a diagram as SVG. Irreversible collapse nodes get a heavy
border; with --state, excluded elements are dimmed and unresolved
elements dashed.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sid visualize package.json --diagram d1 --output d1.svg
  sid visualize package.json --state s1
  sid visualize --expr "O(C(P(Focus), P(Depth)))" --output out.svg
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := viz.DefaultSVGOptions()
	opts.ShowEdgeLabels = *edgeLabels

	if *expr != "" {
		d, err := parser.ParseDiagram("expr", *expr)
		if err != nil {
			return err
		}
		out := *outputFile
		if out == "" {
			out = "expr.svg"
		}
		if err := viz.SaveSVG(d, out, opts); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "SVG written to %s\n", out)
		return nil
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("package file or --expr required")
	}

	pkg, err := parser.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if len(pkg.Diagrams) == 0 {
		return fmt.Errorf("package has no diagrams")
	}

	d := pkg.Diagrams[0]
	if *diagramID != "" {
		var ok bool
		d, ok = pkg.Diagram(*diagramID)
		if !ok {
			return fmt.Errorf("unknown diagram %q", *diagramID)
		}
	}

	if *stateID != "" {
		st, ok := pkg.State(*stateID)
		if !ok {
			return fmt.Errorf("unknown state %q", *stateID)
		}
		if st.DiagramID != d.ID {
			return fmt.Errorf("state %s labels diagram %q, not %q", st.ID, st.DiagramID, d.ID)
		}
		labeled := crf.AssignLabelsWith(crf.Options{}, d, pkg.Constraints, st, pkg.CSIForState(st))
		opts.Labels = labeled.Labels
	}

	out := *outputFile
	if out == "" {
		out = d.ID + ".svg"
	}
	if err := viz.SaveSVG(d, out, opts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "SVG written to %s\n", out)
	return nil
}
