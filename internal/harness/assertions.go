package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/policyminer/internal/policy"
)

// MetricTolerance is the absolute tolerance for expected metric values.
const MetricTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes the mined rules to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Rules    []policy.Rule // Full rule list for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nMined rules:\n")
	if len(e.Rules) == 0 {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	for i, r := range e.Rules {
		key, value := r.Feature()
		fmt.Fprintf(&buf, "  [%d] %s=%s -> %s (support=%g, confidence=%g, lift=%g)\n",
			i+1, key, value, r.Consequent, r.Support, r.Confidence, r.Lift)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against rs and returns the
// failure messages. An empty slice means all assertions held.
func EvaluateAssertions(rs *policy.RuleSet, assertions []Assertion) []string {
	errs := []string{}
	for i, a := range assertions {
		if err := evaluateAssertion(rs, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(rs *policy.RuleSet, a Assertion) error {
	switch a.Type {
	case AssertRulePresent:
		return assertRulePresent(rs.Rules, a)
	case AssertRuleAbsent:
		return assertRuleAbsent(rs.Rules, a)
	case AssertRuleCount:
		return assertRuleCount(rs.Rules, a)
	case AssertTopRule:
		return assertTopRule(rs.Rules, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertRulePresent checks that the rule exists and, where given, that its
// metrics match within MetricTolerance.
func assertRulePresent(rules []policy.Rule, a Assertion) error {
	r := findRule(rules, a.Key, a.Value, a.Action)
	if r == nil {
		return &AssertionError{
			Type:     AssertRulePresent,
			Expected: describeRule(a),
			Actual:   "not found",
			Rules:    rules,
		}
	}

	checks := []struct {
		name string
		want *float64
		got  float64
	}{
		{"support", a.Support, r.Support},
		{"confidence", a.Confidence, r.Confidence},
		{"lift", a.Lift, r.Lift},
	}
	for _, c := range checks {
		if c.want == nil {
			continue
		}
		if math.Abs(*c.want-c.got) > MetricTolerance {
			return &AssertionError{
				Type:     AssertRulePresent,
				Expected: fmt.Sprintf("%s with %s=%g", describeRule(a), c.name, *c.want),
				Actual:   fmt.Sprintf("%s=%g", c.name, c.got),
				Rules:    rules,
			}
		}
	}
	return nil
}

func assertRuleAbsent(rules []policy.Rule, a Assertion) error {
	if r := findRule(rules, a.Key, a.Value, a.Action); r != nil {
		return &AssertionError{
			Type:     AssertRuleAbsent,
			Expected: fmt.Sprintf("no rule %s", describeRule(a)),
			Actual:   fmt.Sprintf("found %s", r.ID),
			Rules:    rules,
		}
	}
	return nil
}

func assertRuleCount(rules []policy.Rule, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("rule_count requires count")
	}
	if len(rules) != *a.Count {
		return &AssertionError{
			Type:     AssertRuleCount,
			Expected: fmt.Sprintf("%d rules", *a.Count),
			Actual:   fmt.Sprintf("%d rules", len(rules)),
			Rules:    rules,
		}
	}
	return nil
}

func assertTopRule(rules []policy.Rule, a Assertion) error {
	if len(rules) == 0 {
		return &AssertionError{
			Type:     AssertTopRule,
			Expected: describeRule(a),
			Actual:   "no rules mined",
			Rules:    rules,
		}
	}
	key, value := rules[0].Feature()
	if key != a.Key || value != a.Value || rules[0].Consequent != a.Action {
		return &AssertionError{
			Type:     AssertTopRule,
			Expected: describeRule(a),
			Actual:   fmt.Sprintf("%s=%s -> %s", key, value, rules[0].Consequent),
			Rules:    rules,
		}
	}
	return nil
}

// findRule returns the rule key=value -> action, or nil.
func findRule(rules []policy.Rule, key, value, action string) *policy.Rule {
	for i := range rules {
		k, v := rules[i].Feature()
		if k == key && v == value && rules[i].Consequent == action {
			return &rules[i]
		}
	}
	return nil
}

func describeRule(a Assertion) string {
	return fmt.Sprintf("%s=%s -> %s", a.Key, a.Value, a.Action)
}
