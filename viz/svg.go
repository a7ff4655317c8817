// Package viz renders diagrams as SVG: one rounded box per operator
// node, layered so that arguments sit below their consumers, with
// label colors reflecting a state's I/N/U assignment when one is
// supplied.
package viz

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sid-xyz/go-sid/diagram"
)

// SVGOptions controls diagram rendering.
type SVGOptions struct {
	NodeWidth      float64
	NodeHeight     float64
	NodeSpacingX   float64
	NodeSpacingY   float64
	Padding        float64
	ShowEdgeLabels bool
	// Labels, when set, colors nodes by their I/N/U assignment.
	Labels map[string]diagram.Label
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() *SVGOptions {
	return &SVGOptions{
		NodeWidth:    110,
		NodeHeight:   44,
		NodeSpacingX: 150,
		NodeSpacingY: 90,
		Padding:      50,
	}
}

var opFills = map[diagram.Op]string{
	diagram.OpProjection:  "#e3f2fd",
	diagram.OpPolarityPos: "#e8f5e9",
	diagram.OpPolarityNeg: "#fce4ec",
	diagram.OpCollapse:    "#fff3e0",
	diagram.OpCoupling:    "#f3e5f5",
	diagram.OpTransport:   "#e0f7fa",
}

var opStrokes = map[diagram.Op]string{
	diagram.OpProjection:  "#1976d2",
	diagram.OpPolarityPos: "#388e3c",
	diagram.OpPolarityNeg: "#c2185b",
	diagram.OpCollapse:    "#f57c00",
	diagram.OpCoupling:    "#7b1fa2",
	diagram.OpTransport:   "#0097a7",
}

type point struct {
	x, y float64
}

// RenderSVG converts a diagram to SVG format.
func RenderSVG(d *diagram.Diagram, opts *SVGOptions) (string, error) {
	if opts == nil {
		opts = DefaultSVGOptions()
	}
	if len(d.Nodes) == 0 {
		return "", fmt.Errorf("viz: diagram %s has no nodes", d.ID)
	}

	layout := layoutDiagram(d, opts)

	minX, minY := -opts.Padding, -opts.Padding
	maxX, maxY := opts.Padding, opts.Padding
	for _, p := range layout {
		if p.x+opts.NodeWidth+opts.Padding > maxX {
			maxX = p.x + opts.NodeWidth + opts.Padding
		}
		if p.y+opts.NodeHeight+opts.Padding > maxY {
			maxY = p.y + opts.NodeHeight + opts.Padding
		}
	}
	width := maxX - minX
	height := maxY - minY
	if width < 200 {
		width = 200
	}
	if height < 120 {
		height = 120
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`,
		minX, minY, width, height, width, height))
	buf.WriteString("\n")

	buf.WriteString(`<defs>`)
	buf.WriteString(`<style>`)
	buf.WriteString(`.node { stroke-width: 2; rx: 8; }`)
	buf.WriteString(`.node-irreversible { stroke-width: 3.5; }`)
	buf.WriteString(`.node-excluded { opacity: 0.45; }`)
	buf.WriteString(`.node-unresolved { stroke-dasharray: 5,3; }`)
	buf.WriteString(`.edge { stroke: #666; stroke-width: 1.5; fill: none; }`)
	buf.WriteString(`.arrowhead { fill: #666; }`)
	buf.WriteString(`.node-label { font-family: system-ui, Arial; font-size: 11px; fill: #333; text-anchor: middle; dominant-baseline: middle; }`)
	buf.WriteString(`.op-label { font-family: system-ui, Arial; font-size: 13px; font-weight: bold; fill: #333; text-anchor: middle; }`)
	buf.WriteString(`.edge-label { font-family: system-ui, Arial; font-size: 9px; fill: #999; text-anchor: middle; }`)
	buf.WriteString(`.title { font-family: system-ui, Arial; font-size: 14px; font-weight: bold; fill: #333; }`)
	buf.WriteString(`</style>`)
	buf.WriteString(`<marker id="viz-arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">`)
	buf.WriteString(`<polygon points="0 0, 10 3.5, 0 7" class="arrowhead"/>`)
	buf.WriteString(`</marker>`)
	buf.WriteString(`</defs>`)
	buf.WriteString("\n")

	if d.ID != "" {
		buf.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="title">%s</text>`,
			minX+10, minY+22, escapeXML(d.ID)))
		buf.WriteString("\n")
	}

	// Edges first, behind nodes.
	for _, e := range d.Edges {
		drawEdge(&buf, e, layout, opts)
	}
	for _, n := range d.Nodes {
		drawNode(&buf, n, layout[n.ID], opts)
	}

	buf.WriteString(`</svg>`)
	buf.WriteString("\n")
	return buf.String(), nil
}

// SaveSVG renders a diagram to SVG and saves it to a file.
func SaveSVG(d *diagram.Diagram, filename string, opts *SVGOptions) error {
	svg, err := RenderSVG(d, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(svg), 0644)
}

// layoutDiagram assigns each node a position. Nodes are layered by
// their longest path from a leaf, so arguments always sit below the
// operators that consume them.
func layoutDiagram(d *diagram.Diagram, opts *SVGOptions) map[string]point {
	depth := make(map[string]int, len(d.Nodes))
	var depthOf func(id string, trail map[string]bool) int
	depthOf = func(id string, trail map[string]bool) int {
		if v, ok := depth[id]; ok {
			return v
		}
		if trail[id] {
			return 0 // cycle guard; layout must not hang on cyclic input
		}
		trail[id] = true
		max := 0
		for _, pred := range d.Predecessors(id) {
			if dp := depthOf(pred, trail) + 1; dp > max {
				max = dp
			}
		}
		delete(trail, id)
		depth[id] = max
		return max
	}

	maxDepth := 0
	for _, n := range d.Nodes {
		if dp := depthOf(n.ID, map[string]bool{}); dp > maxDepth {
			maxDepth = dp
		}
	}

	layers := make(map[int][]string)
	for _, n := range d.Nodes {
		layers[depth[n.ID]] = append(layers[depth[n.ID]], n.ID)
	}

	layout := make(map[string]point, len(d.Nodes))
	for dp, ids := range layers {
		sort.Strings(ids)
		for i, id := range ids {
			layout[id] = point{
				x: float64(i) * opts.NodeSpacingX,
				y: float64(maxDepth-dp) * opts.NodeSpacingY,
			}
		}
	}
	return layout
}

func drawNode(buf *bytes.Buffer, n diagram.Node, pos point, opts *SVGOptions) {
	fill := opFills[n.Op]
	stroke := opStrokes[n.Op]
	if fill == "" {
		fill, stroke = "#fafafa", "#666"
	}

	classes := []string{"node"}
	if n.Irreversible {
		classes = append(classes, "node-irreversible")
	}
	if opts.Labels != nil {
		switch opts.Labels[n.ID] {
		case diagram.LabelNot:
			classes = append(classes, "node-excluded")
		case diagram.LabelUnknown:
			classes = append(classes, "node-unresolved")
		}
	}

	buf.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" fill="%s" stroke="%s" class="%s"/>`,
		pos.x, pos.y, opts.NodeWidth, opts.NodeHeight, fill, stroke, strings.Join(classes, " ")))
	buf.WriteString("\n")

	cx := pos.x + opts.NodeWidth/2
	buf.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="op-label">%s</text>`,
		cx, pos.y+17, escapeXML(string(n.Op))))
	buf.WriteString("\n")

	detail := n.ID
	if len(n.DOFRefs) > 0 {
		detail = strings.Join(n.DOFRefs, ", ")
	}
	buf.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="node-label">%s</text>`,
		cx, pos.y+opts.NodeHeight-12, escapeXML(detail)))
	buf.WriteString("\n")
}

func drawEdge(buf *bytes.Buffer, e diagram.Edge, layout map[string]point, opts *SVGOptions) {
	from, ok := layout[e.From]
	if !ok {
		return
	}
	to, ok := layout[e.To]
	if !ok {
		return
	}

	x1 := from.x + opts.NodeWidth/2
	y1 := from.y
	x2 := to.x + opts.NodeWidth/2
	y2 := to.y + opts.NodeHeight

	buf.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="edge" marker-end="url(#viz-arrowhead)"/>`,
		x1, y1, x2, y2))
	buf.WriteString("\n")

	if opts.ShowEdgeLabels && e.Label != "" {
		buf.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="edge-label">%s</text>`,
			(x1+x2)/2, (y1+y2)/2-4, escapeXML(e.Label)))
		buf.WriteString("\n")
	}
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
