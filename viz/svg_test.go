package viz

import (
	"strings"
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

func TestRenderSVG_BasicDiagram(t *testing.T) {
	d, err := parser.ParseDiagram("demo", "C(P(Freedom), S+(Gradient))")
	if err != nil {
		t.Fatalf("ParseDiagram failed: %v", err)
	}

	svg, err := RenderSVG(d, nil)
	if err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}

	if !strings.HasPrefix(svg, "<svg") {
		t.Error("SVG should start with <svg tag")
	}
	if !strings.HasSuffix(strings.TrimSpace(svg), "</svg>") {
		t.Error("SVG should end with </svg> tag")
	}
	if !strings.Contains(svg, "demo") {
		t.Error("SVG should contain the diagram id as title")
	}
	for _, want := range []string{"Freedom", "Gradient", ">C<", ">P<", ">S+<"} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG should contain %q", want)
		}
	}
	if got := strings.Count(svg, "<line"); got != 2 {
		t.Errorf("expected 2 edges drawn, got %d", got)
	}
}

func TestRenderSVG_IrreversibleAndLabels(t *testing.T) {
	d, err := parser.ParseDiagram("d1", "O(P(Focus))")
	if err != nil {
		t.Fatalf("ParseDiagram failed: %v", err)
	}

	var collapse string
	for _, n := range d.Nodes {
		if n.Op == diagram.OpCollapse {
			collapse = n.ID
		}
	}

	opts := DefaultSVGOptions()
	opts.Labels = map[string]diagram.Label{collapse: diagram.LabelNot}

	svg, err := RenderSVG(d, opts)
	if err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}
	if !strings.Contains(svg, "node-irreversible") {
		t.Error("collapse node should carry the irreversible class")
	}
	if !strings.Contains(svg, "node-excluded") {
		t.Error("excluded node should carry the excluded class")
	}
}

func TestRenderSVG_EmptyDiagramFails(t *testing.T) {
	d, err := diagram.New("empty", "", nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := RenderSVG(d, nil); err == nil {
		t.Error("expected error for empty diagram")
	}
}

func TestRenderSVG_EscapesMarkup(t *testing.T) {
	d, err := parser.ParseDiagram("a<b", "P(Focus)")
	if err != nil {
		t.Fatalf("ParseDiagram failed: %v", err)
	}
	svg, err := RenderSVG(d, nil)
	if err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}
	if strings.Contains(svg, ">a<b<") {
		t.Error("title should be XML-escaped")
	}
	if !strings.Contains(svg, "a&lt;b") {
		t.Error("escaped title missing")
	}
}
