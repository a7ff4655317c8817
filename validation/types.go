// Package validation provides whole-package consistency analysis:
// cross-reference checks between declarations, diagrams, states, and
// causal spheres, plus an admissibility probe over the labeling layer.
package validation

import (
	"github.com/sid-xyz/go-sid/parser"
)

// Result contains the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Info     []Issue `json:"info,omitempty"`
	Summary  Summary `json:"summary"`
}

// Issue represents a single validation finding.
type Issue struct {
	Severity   string   `json:"severity"` // "error", "warning", "info"
	Category   string   `json:"category"` // "duplicate_id", "missing_reference", ...
	Message    string   `json:"message"`
	Location   []string `json:"location,omitempty"` // affected element ids
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary provides an overview of the validated package.
type Summary struct {
	DOFs         int `json:"dofs"`
	Compartments int `json:"compartments"`
	CSIs         int `json:"csis"`
	Diagrams     int `json:"diagrams"`
	States       int `json:"states"`
	Constraints  int `json:"constraints"`
	Rules        int `json:"rules"`
	Errors       int `json:"errors"`
	Warnings     int `json:"warnings"`
}

// Validator performs validation checks over one package.
type Validator struct {
	pkg    *parser.Package
	result *Result
}

// NewValidator creates a validator for a package.
func NewValidator(pkg *parser.Package) *Validator {
	return &Validator{
		pkg: pkg,
		result: &Result{
			Valid: true,
			Summary: Summary{
				DOFs:         len(pkg.DOFs),
				Compartments: len(pkg.Compartments),
				CSIs:         len(pkg.CSIs),
				Diagrams:     len(pkg.Diagrams),
				States:       len(pkg.States),
				Constraints:  len(pkg.Constraints),
				Rules:        len(pkg.Rules),
			},
		},
	}
}

// Validate runs all structural and cross-reference checks.
func (v *Validator) Validate() *Result {
	v.checkDeclarations()
	v.checkCSIs()
	v.checkDiagrams()
	v.checkStates()
	v.checkConstraints()
	v.checkRules()

	v.result.Valid = len(v.result.Errors) == 0
	v.result.Summary.Errors = len(v.result.Errors)
	v.result.Summary.Warnings = len(v.result.Warnings)
	return v.result
}

// ValidateWithLabels runs validation and then the admissibility probe
// for every state in the package.
func (v *Validator) ValidateWithLabels() *Result {
	v.Validate()
	v.probeAdmissibility()
	v.result.Valid = len(v.result.Errors) == 0
	v.result.Summary.Errors = len(v.result.Errors)
	v.result.Summary.Warnings = len(v.result.Warnings)
	return v.result
}

// AddError adds an error-severity issue.
func (v *Validator) AddError(category, message string, location []string, suggestion string) {
	v.result.Errors = append(v.result.Errors, Issue{
		Severity:   "error",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddWarning adds a warning-severity issue.
func (v *Validator) AddWarning(category, message string, location []string, suggestion string) {
	v.result.Warnings = append(v.result.Warnings, Issue{
		Severity:   "warning",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddInfo adds an informational issue.
func (v *Validator) AddInfo(category, message string, location []string) {
	v.result.Info = append(v.result.Info, Issue{
		Severity: "info",
		Category: category,
		Message:  message,
		Location: location,
	})
}
