// Package query filters mined rules with CEL predicates.
//
// Expressions see one rule at a time through these variables:
//
//	id          string   rule identifier (policy_0001)
//	key, value  string   antecedent context key and value
//	action      string   consequent action
//	support     double
//	confidence  double
//	lift        double
//
// For example: `lift > 2.0 && key == "role"` or `action.startsWith("read")`.
// Expressions must be boolean; anything else is rejected at compile time.
package query

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"

	"github.com/roach88/policyminer/internal/policy"
)

// costLimit bounds the evaluation cost of a single predicate.
const costLimit = 100000

// Predicate is a compiled rule filter. It is safe for concurrent use.
type Predicate struct {
	expr string
	prog cel.Program
}

// newEnv declares the rule variables.
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("key", cel.StringType),
		cel.Variable("value", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("support", cel.DoubleType),
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("lift", cel.DoubleType),
	)
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Predicate, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("compile %q: expression must be boolean, got %v", expr, ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	return &Predicate{expr: expr, prog: prog}, nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.expr
}

// Match evaluates the predicate against r.
func (p *Predicate) Match(r policy.Rule) (bool, error) {
	key, value := r.Feature()
	out, _, err := p.prog.Eval(map[string]any{
		"id":         r.ID,
		"key":        key,
		"value":      value,
		"action":     r.Consequent,
		"support":    r.Support,
		"confidence": r.Confidence,
		"lift":       r.Lift,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q on %s: %w", p.expr, r.ID, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q on %s: non-boolean result %v", p.expr, r.ID, out)
	}
	return matched, nil
}

// Filter returns the rules matching p, preserving their order. A nil
// predicate matches everything.
func Filter(rules []policy.Rule, p *Predicate) ([]policy.Rule, error) {
	out := make([]policy.Rule, 0, len(rules))
	for _, r := range rules {
		if p == nil {
			out = append(out, r)
			continue
		}
		ok, err := p.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// FilterSet returns a copy of rs holding only the matching rules. Rule ids
// and order are kept as mined.
func FilterSet(rs *policy.RuleSet, p *Predicate) (*policy.RuleSet, error) {
	rules, err := Filter(rs.Rules, p)
	if err != nil {
		return nil, err
	}
	out := *rs
	out.Rules = rules
	return &out, nil
}
