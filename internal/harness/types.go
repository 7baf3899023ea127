package harness

import (
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held and the stored rule set round-tripped.
	Pass bool `json:"pass"`

	// RuleSet is the mined rule set. Used for golden comparison.
	RuleSet *policy.RuleSet `json:"rule_set"`

	// Digest is the content digest of RuleSet.
	Digest string `json:"digest"`

	// Rejected lists log entries the parser refused.
	Rejected []record.Problem `json:"rejected,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
