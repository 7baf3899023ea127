package policy

import (
	"fmt"
	"time"
)

// DefaultName is used when a rule set is mined without an explicit name.
const DefaultName = "Mined Policy Set"

// Rule is a single-antecedent association rule: when the context key holds
// the value, agents perform the consequent action.
type Rule struct {
	ID          string            `json:"policy_id"`
	Antecedent  map[string]string `json:"antecedent"`
	Consequent  string            `json:"consequent"`
	Support     float64           `json:"support"`
	Confidence  float64           `json:"confidence"`
	Lift        float64           `json:"lift"`
	Description string            `json:"description"`
}

// Feature returns the antecedent's single key and value. Rules built by the
// miner always carry exactly one antecedent entry.
func (r Rule) Feature() (key, value string) {
	for k, v := range r.Antecedent {
		return k, v
	}
	return "", ""
}

// Validate checks metric ranges and the single-antecedent shape.
func (r Rule) Validate() error {
	if len(r.Antecedent) != 1 {
		return fmt.Errorf("rule %s: antecedent must have exactly one entry, got %d", r.ID, len(r.Antecedent))
	}
	if r.Consequent == "" {
		return fmt.Errorf("rule %s: consequent is required", r.ID)
	}
	if r.Support < 0 || r.Support > 1 {
		return fmt.Errorf("rule %s: support %v out of range [0,1]", r.ID, r.Support)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("rule %s: confidence %v out of range [0,1]", r.ID, r.Confidence)
	}
	if r.Lift < 0 {
		return fmt.Errorf("rule %s: lift %v must be non-negative", r.ID, r.Lift)
	}
	return nil
}

// RuleSet is the ordered output of one mining run.
type RuleSet struct {
	Name        string    `json:"name"`
	SourceLogs  int       `json:"source_logs"`
	Rules       []Rule    `json:"policies"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Validate checks the set-level invariants.
func (rs *RuleSet) Validate() error {
	if rs.SourceLogs < 0 {
		return fmt.Errorf("source_logs must be non-negative, got %d", rs.SourceLogs)
	}
	for _, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Top returns at most n rules from the front of the set.
func (rs *RuleSet) Top(n int) []Rule {
	return TopRules(rs, n)
}

// TopRules returns the first n rules of rs in their stored order. The set is
// already ranked, so nothing is re-sorted. n <= 0 yields an empty slice and n
// beyond the rule count yields every rule.
func TopRules(rs *RuleSet, n int) []Rule {
	if rs == nil || n <= 0 {
		return []Rule{}
	}
	if n > len(rs.Rules) {
		n = len(rs.Rules)
	}
	out := make([]Rule, n)
	copy(out, rs.Rules[:n])
	return out
}

// FormatID renders the 1-based rank identifier of a rule.
func FormatID(rank int) string {
	return fmt.Sprintf("policy_%04d", rank)
}
