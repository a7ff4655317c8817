// Package rewrite implements pattern matching and rewrite application
// for interaction diagrams. Rules come in two pattern kinds: small
// edge-topology subgraphs with typed node variables, matched by
// backtracking subgraph search, and expression-shaped patterns matched
// structurally against the diagram's operator-tree view. Application
// always produces a new diagram; the input is never mutated.
package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sid-xyz/go-sid/diagram"
)

// DefaultMaxMatches bounds match enumeration per pattern.
const DefaultMaxMatches = 1000

// DefaultMaxIterations bounds the driving loop.
const DefaultMaxIterations = 1000

var (
	// ErrRewriteIntroducedCycle rejects an application whose result
	// diagram failed the acyclicity check. The input diagram is
	// returned unchanged alongside it.
	ErrRewriteIntroducedCycle = errors.New("rewrite: application would introduce a cycle")
)

// SidePattern is one endpoint of an edge pattern: an optional operator
// constraint plus a variable that binds the matched node id.
type SidePattern struct {
	Op  diagram.Op // empty means any operator
	Var string
}

// EdgePattern matches a single labeled edge between two sides.
type EdgePattern struct {
	Left  SidePattern
	Label string
	Right SidePattern
}

// TopologyPattern is an edge-topology pattern: a comma-separated list
// of edge patterns that must bind consistently.
type TopologyPattern struct {
	Edges []EdgePattern
}

// ParseSidePattern parses "var" or "Op(var)".
func ParseSidePattern(text string) (SidePattern, error) {
	text = strings.TrimSpace(text)
	if open := strings.IndexByte(text, '('); open >= 0 {
		if !strings.HasSuffix(text, ")") {
			return SidePattern{}, fmt.Errorf("rewrite: invalid side pattern %q", text)
		}
		op := strings.TrimSpace(text[:open])
		v := strings.TrimSpace(text[open+1 : len(text)-1])
		if op == "" || v == "" || !diagram.ValidOpName(op) {
			return SidePattern{}, fmt.Errorf("rewrite: invalid side pattern %q", text)
		}
		return SidePattern{Op: diagram.Op(op), Var: v}, nil
	}
	if text == "" {
		return SidePattern{}, fmt.Errorf("rewrite: empty side pattern")
	}
	return SidePattern{Var: text}, nil
}

// ParseTopologyPattern parses a pattern of the form
// "Op(a) --label--> Op(b), b --label--> c".
func ParseTopologyPattern(text string) (TopologyPattern, error) {
	if !strings.Contains(text, "--") || !strings.Contains(text, "-->") {
		return TopologyPattern{}, fmt.Errorf("rewrite: invalid topology pattern %q", text)
	}
	var edges []EdgePattern
	for _, segment := range strings.Split(text, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		leftPart, rest, ok := strings.Cut(segment, "--")
		if !ok {
			return TopologyPattern{}, fmt.Errorf("rewrite: invalid segment %q", segment)
		}
		label, rightPart, ok := strings.Cut(rest, "-->")
		if !ok {
			return TopologyPattern{}, fmt.Errorf("rewrite: invalid segment %q", segment)
		}
		left, err := ParseSidePattern(leftPart)
		if err != nil {
			return TopologyPattern{}, err
		}
		right, err := ParseSidePattern(rightPart)
		if err != nil {
			return TopologyPattern{}, err
		}
		edges = append(edges, EdgePattern{Left: left, Label: strings.TrimSpace(label), Right: right})
	}
	if len(edges) == 0 {
		return TopologyPattern{}, fmt.Errorf("rewrite: pattern %q has no edges", text)
	}
	return TopologyPattern{Edges: edges}, nil
}
