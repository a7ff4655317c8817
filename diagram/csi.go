package diagram

// DOF is an independent dimension of distinction. DOFs are declared
// once per package and immutable thereafter.
type DOF struct {
	ID          string `json:"id"`
	Group       string `json:"group,omitempty"` // orthogonal-group tag
	Description string `json:"description,omitempty"`
}

// Compartment is an ordered, irreversible stage boundary.
type Compartment struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Index int    `json:"index"`
}

// DOFPair is an ordered pair of DOF ids admitted to interact.
type DOFPair [2]string

// CSI is a causal sphere of influence: the hard admissibility boundary
// precedent to all diagram operations. Immutable per validation pass.
type CSI struct {
	ID           string    `json:"id"`
	AllowedDOFs  []string  `json:"allowed_dofs"`
	AllowedPairs []DOFPair `json:"allowed_pairs"`

	dofSet  map[string]bool
	pairSet map[DOFPair]bool
}

// NewCSI builds a CSI with precomputed membership sets.
func NewCSI(id string, allowedDOFs []string, allowedPairs []DOFPair) *CSI {
	c := &CSI{
		ID:           id,
		AllowedDOFs:  append([]string(nil), allowedDOFs...),
		AllowedPairs: append([]DOFPair(nil), allowedPairs...),
	}
	c.buildSets()
	return c
}

func (c *CSI) buildSets() {
	c.dofSet = make(map[string]bool, len(c.AllowedDOFs))
	for _, d := range c.AllowedDOFs {
		c.dofSet[d] = true
	}
	c.pairSet = make(map[DOFPair]bool, len(c.AllowedPairs))
	for _, p := range c.AllowedPairs {
		c.pairSet[p] = true
	}
}

// DOFAllowed reports whether the DOF id is inside the sphere.
func (c *CSI) DOFAllowed(dof string) bool {
	if c.dofSet == nil {
		c.buildSets()
	}
	return c.dofSet[dof]
}

// PairAllowed reports whether the ordered DOF pair (a, b) is admissible.
func (c *CSI) PairAllowed(a, b string) bool {
	if c.pairSet == nil {
		c.buildSets()
	}
	return c.pairSet[DOFPair{a, b}]
}

// HasPairs reports whether any admissible pairs are declared. A CSI
// with no declared pairs places no restriction on edges.
func (c *CSI) HasPairs() bool {
	return len(c.AllowedPairs) > 0
}
