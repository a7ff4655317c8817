package rewrite

import (
	"fmt"
	"sort"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

// Operand is one argument position of a matched operator node: either
// a child node id or a literal atom carried on the node itself.
type Operand struct {
	NodeID string
	Atom   string
}

func (o Operand) equal(other Operand) bool {
	return o.NodeID == other.NodeID && o.Atom == other.Atom
}

// Match records one occurrence of a rule's pattern in a diagram.
type Match struct {
	RuleID string

	// Vars maps pattern variables to the operand lists they bind.
	// Topology patterns bind exactly one node per variable; a trailing
	// variable in an expression pattern may absorb several operands.
	Vars map[string][]Operand

	// Root is the matched root node for expression patterns.
	Root string

	// MatchedNodes are the nodes structurally consumed by the pattern,
	// in deterministic order. Nodes bound to variables are excluded.
	MatchedNodes []string

	// MatchedEdges are the diagram edges consumed by the pattern.
	MatchedEdges []string

	expr bool
}

// Touched lists every element id the match involves, nodes and edges
// alike, for admissibility checks ahead of application.
func (m *Match) Touched() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	add(m.Root)
	for _, id := range m.MatchedNodes {
		add(id)
	}
	for _, id := range m.MatchedEdges {
		add(id)
	}
	for _, ops := range m.Vars {
		for _, op := range ops {
			add(op.NodeID)
		}
	}
	sort.Strings(out)
	return out
}

// Matcher is a rule compiled into matchable form.
type Matcher struct {
	rule     diagram.Rule
	topology TopologyPattern
	replTopo TopologyPattern
	pattern  parser.Expr
	repl     parser.Expr
}

// Compile parses the rule's pattern and replacement. Expression-form
// rules use the operator grammar; otherwise both sides must be
// edge-topology patterns.
func Compile(rule diagram.Rule) (*Matcher, error) {
	m := &Matcher{rule: rule}
	if rule.ExprForm() {
		pat, err := parser.ParsePattern(rule.PatternExpr)
		if err != nil {
			return nil, fmt.Errorf("rewrite: rule %s pattern: %w", rule.ID, err)
		}
		repl, err := parser.ParsePattern(rule.ReplacementExpr)
		if err != nil {
			return nil, fmt.Errorf("rewrite: rule %s replacement: %w", rule.ID, err)
		}
		m.pattern = pat
		m.repl = repl
		return m, nil
	}
	topo, err := ParseTopologyPattern(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rewrite: rule %s: %w", rule.ID, err)
	}
	replTopo, err := ParseTopologyPattern(rule.Replacement)
	if err != nil {
		return nil, fmt.Errorf("rewrite: rule %s: %w", rule.ID, err)
	}
	m.topology = topo
	m.replTopo = replTopo
	return m, nil
}

// Rule returns the compiled rule.
func (m *Matcher) Rule() diagram.Rule { return m.rule }

// MatchSet enumerates successive non-overlapping matches lazily.
// Each call to Next excludes the elements of previously returned
// matches, so repeated calls walk disjoint occurrences until none
// remain or the match budget is exhausted.
type MatchSet struct {
	m         *Matcher
	d         *diagram.Diagram
	forbidden map[string]bool
	limit     int
	found     int
	limited   bool
	done      bool
}

// FindMatches starts lazy enumeration with the default match budget.
func (m *Matcher) FindMatches(d *diagram.Diagram) *MatchSet {
	return m.FindMatchesFrom(d, nil, DefaultMaxMatches)
}

// FindMatchesFrom starts enumeration honoring a caller-supplied
// forbidden element set and an explicit budget. The forbidden map is
// copied, not retained.
func (m *Matcher) FindMatchesFrom(d *diagram.Diagram, forbidden map[string]bool, limit int) *MatchSet {
	if limit <= 0 {
		limit = DefaultMaxMatches
	}
	fb := make(map[string]bool, len(forbidden))
	for id, v := range forbidden {
		if v {
			fb[id] = true
		}
	}
	return &MatchSet{m: m, d: d, forbidden: fb, limit: limit}
}

// Next returns the next match, or false when enumeration is finished.
func (ms *MatchSet) Next() (*Match, bool) {
	if ms.done {
		return nil, false
	}
	if ms.found >= ms.limit {
		ms.limited = true
		ms.done = true
		return nil, false
	}
	var match *Match
	if ms.m.rule.ExprForm() {
		match = ms.m.findExprMatch(ms.d, ms.forbidden)
	} else {
		match = ms.m.findTopologyMatch(ms.d, ms.forbidden)
	}
	if match == nil {
		ms.done = true
		return nil, false
	}
	ms.found++
	if match.Root != "" {
		ms.forbidden[match.Root] = true
	}
	for _, id := range match.MatchedNodes {
		ms.forbidden[id] = true
	}
	for _, id := range match.MatchedEdges {
		ms.forbidden[id] = true
	}
	return match, true
}

// LimitReached reports whether enumeration stopped at the budget
// rather than by exhausting the diagram.
func (ms *MatchSet) LimitReached() bool { return ms.limited }

// frame is one level of the backtracking search: which pattern edge is
// being assigned and which candidate diagram edge to try next.
type frame struct {
	patternIdx int
	candidate  int
	chosen     string
	boundVars  []string
}

// findTopologyMatch runs an iterative backtracking search assigning
// pattern edges to distinct diagram edges with consistent variable
// bindings. Edges in the forbidden set are skipped.
func (m *Matcher) findTopologyMatch(d *diagram.Diagram, forbidden map[string]bool) *Match {
	edges := d.Edges
	pattern := m.topology.Edges

	vars := make(map[string]string)
	used := make(map[string]bool)

	sideOK := func(sp SidePattern, nodeID string) bool {
		if forbidden[nodeID] {
			return false
		}
		n, ok := d.Node(nodeID)
		if !ok {
			return false
		}
		if sp.Op != "" && n.Op != sp.Op {
			return false
		}
		if bound, ok := vars[sp.Var]; ok {
			return bound == nodeID
		}
		return true
	}

	stack := []frame{{patternIdx: 0, candidate: 0}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.patternIdx == len(pattern) {
			edgeIDs := make([]string, 0, len(stack)-1)
			for _, fr := range stack[:len(stack)-1] {
				edgeIDs = append(edgeIDs, fr.chosen)
			}
			bound := make(map[string][]Operand, len(vars))
			var nodes []string
			for v, id := range vars {
				bound[v] = []Operand{{NodeID: id}}
				nodes = append(nodes, id)
			}
			sort.Strings(nodes)
			return &Match{
				RuleID:       m.rule.ID,
				Vars:         bound,
				MatchedNodes: nodes,
				MatchedEdges: edgeIDs,
			}
		}
		pe := pattern[f.patternIdx]
		advanced := false
		for f.candidate < len(edges) {
			e := edges[f.candidate]
			f.candidate++
			if forbidden[e.ID] || used[e.ID] {
				continue
			}
			if pe.Label != "" && e.Label != pe.Label {
				continue
			}
			if !sideOK(pe.Left, e.From) || !sideOK(pe.Right, e.To) {
				continue
			}
			var newly []string
			if _, ok := vars[pe.Left.Var]; !ok {
				vars[pe.Left.Var] = e.From
				newly = append(newly, pe.Left.Var)
			}
			if _, ok := vars[pe.Right.Var]; !ok {
				vars[pe.Right.Var] = e.To
				newly = append(newly, pe.Right.Var)
			}
			if vars[pe.Left.Var] != e.From || vars[pe.Right.Var] != e.To {
				for _, v := range newly {
					delete(vars, v)
				}
				continue
			}
			used[e.ID] = true
			f.chosen = e.ID
			f.boundVars = newly
			stack = append(stack, frame{patternIdx: f.patternIdx + 1, candidate: 0})
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				prev := &stack[len(stack)-1]
				delete(used, prev.chosen)
				for _, v := range prev.boundVars {
					delete(vars, v)
				}
				prev.chosen = ""
				prev.boundVars = nil
			}
		}
	}
	return nil
}
