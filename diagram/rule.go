package diagram

// Constraint types and scopes.
const (
	ConstraintHard = "hard"
	ConstraintSoft = "soft"

	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// Constraint names a registered predicate and how its verdict is
// weighted: hard failures become errors, soft failures warnings.
type Constraint struct {
	ID          string `json:"id"`
	Type        string `json:"type"`  // hard | soft
	Scope       string `json:"scope,omitempty"` // local | global
	Predicate   string `json:"predicate"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description,omitempty"`
}

// Hard reports whether a failed check is an error rather than a warning.
func (c Constraint) Hard() bool {
	return c.Type != ConstraintSoft
}

// Rule is a rewrite rule: a pattern/replacement pair with named
// preconditions. A rule carries either an edge-topology pattern
// (Pattern/Replacement) or an expression-shaped pattern
// (PatternExpr/ReplacementExpr); the expression form wins when both
// are set.
type Rule struct {
	ID              string   `json:"id"`
	Pattern         string   `json:"pattern,omitempty"`
	Replacement     string   `json:"replacement,omitempty"`
	PatternExpr     string   `json:"pattern_expr,omitempty"`
	ReplacementExpr string   `json:"replacement_expr,omitempty"`
	Preconditions   []string `json:"preconditions,omitempty"`
}

// ExprForm reports whether the rule uses the expression-shaped form.
func (r Rule) ExprForm() bool {
	return r.PatternExpr != "" && r.ReplacementExpr != ""
}

// Identity reports whether the rule's pattern structurally equals its
// replacement, meaning application cannot change a diagram.
func (r Rule) Identity() bool {
	if r.ExprForm() {
		return r.PatternExpr == r.ReplacementExpr
	}
	return r.Pattern == r.Replacement
}
