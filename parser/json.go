package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sid-xyz/go-sid/diagram"
)

// Package is the JSON interchange unit: declarations, diagrams,
// states, constraints, and rewrite rules that travel together.
type Package struct {
	Name         string                `json:"name,omitempty"`
	DOFs         []diagram.DOF         `json:"dofs,omitempty"`
	Compartments []diagram.Compartment `json:"compartments,omitempty"`
	CSIs         []*diagram.CSI        `json:"csis,omitempty"`
	Diagrams     []*diagram.Diagram    `json:"diagrams,omitempty"`
	States       []*diagram.State      `json:"states,omitempty"`
	Constraints  []diagram.Constraint  `json:"constraints,omitempty"`
	Rules        []diagram.Rule        `json:"rewrite_rules,omitempty"`
}

// diagramDoc is the raw wire shape of a diagram. Diagrams never enter
// the system unvalidated, so decoding goes through diagram.New rather
// than straight into the Diagram type.
type diagramDoc struct {
	ID            string         `json:"id"`
	CompartmentID string         `json:"compartment_id,omitempty"`
	Nodes         []diagram.Node `json:"nodes"`
	Edges         []diagram.Edge `json:"edges"`
}

type packageDoc struct {
	Name         string                `json:"name,omitempty"`
	DOFs         []diagram.DOF         `json:"dofs,omitempty"`
	Compartments []diagram.Compartment `json:"compartments,omitempty"`
	CSIs         []*diagram.CSI        `json:"csis,omitempty"`
	Diagrams     []diagramDoc          `json:"diagrams,omitempty"`
	States       []*diagram.State      `json:"states,omitempty"`
	Constraints  []diagram.Constraint  `json:"constraints,omitempty"`
	Rules        []diagram.Rule        `json:"rewrite_rules,omitempty"`
}

// FromJSON parses a package from JSON bytes. Every embedded diagram is
// rebuilt through structural validation; the first invalid diagram
// fails the whole load.
func FromJSON(data []byte) (*Package, error) {
	var doc packageDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parser: invalid JSON: %w", err)
	}
	pkg := &Package{
		Name:         doc.Name,
		DOFs:         doc.DOFs,
		Compartments: doc.Compartments,
		CSIs:         doc.CSIs,
		States:       doc.States,
		Constraints:  doc.Constraints,
		Rules:        doc.Rules,
	}
	for _, dd := range doc.Diagrams {
		d, err := diagram.New(dd.ID, dd.CompartmentID, dd.Nodes, dd.Edges)
		if err != nil {
			return nil, fmt.Errorf("parser: diagram %s: %w", dd.ID, err)
		}
		pkg.Diagrams = append(pkg.Diagrams, d)
	}
	return pkg, nil
}

// ToJSON serializes a package with indentation for readability.
func ToJSON(pkg *Package) ([]byte, error) {
	return json.MarshalIndent(pkg, "", "  ")
}

// LoadFile reads and parses a package file.
func LoadFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// SaveFile writes a package to a file.
func SaveFile(path string, pkg *Package) error {
	data, err := ToJSON(pkg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diagram returns the diagram with the given id.
func (p *Package) Diagram(id string) (*diagram.Diagram, bool) {
	for _, d := range p.Diagrams {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// State returns the state with the given id.
func (p *Package) State(id string) (*diagram.State, bool) {
	for _, s := range p.States {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// CSI returns the causal sphere with the given id.
func (p *Package) CSI(id string) (*diagram.CSI, bool) {
	for _, c := range p.CSIs {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// CSIForState resolves a state's causal sphere, which may be absent.
func (p *Package) CSIForState(st *diagram.State) *diagram.CSI {
	if st == nil || st.CSIID == "" {
		return nil
	}
	c, _ := p.CSI(st.CSIID)
	return c
}
