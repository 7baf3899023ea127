package miner

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
)

// Miner mines rule sets under fixed thresholds.
type Miner struct {
	thresholds Thresholds
	clock      Clock
	logger     *slog.Logger
}

// Option configures a Miner.
type Option func(*Miner)

// WithClock sets the clock used for generation timestamps.
func WithClock(c Clock) Option {
	return func(m *Miner) {
		m.clock = c
	}
}

// WithLogger sets the logger for mining summaries.
func WithLogger(l *slog.Logger) Option {
	return func(m *Miner) {
		m.logger = l
	}
}

// New returns a Miner for th. Thresholds outside their domain are a caller
// contract violation and yield an error wrapping ErrInvalidThresholds.
func New(th Thresholds, opts ...Option) (*Miner, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	m := &Miner{
		thresholds: th,
		clock:      WallClock{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Thresholds returns the thresholds the miner was built with.
func (m *Miner) Thresholds() Thresholds {
	return m.thresholds
}

// candidate is a triple that passed the thresholds, awaiting ranking.
type candidate struct {
	triple
	metrics
}

// Mine extracts the rule set of records. Records must already satisfy
// record.ActionRecord.Validate. Empty input, or thresholds that admit
// nothing, produce an empty rule set rather than an error. records is not
// modified.
func (m *Miner) Mine(records []record.ActionRecord, name string) *policy.RuleSet {
	rs := &policy.RuleSet{
		Name:        name,
		SourceLogs:  len(records),
		Rules:       []policy.Rule{},
		GeneratedAt: m.clock.Now(),
	}
	if len(records) == 0 {
		return rs
	}

	t := count(records)

	kept := make([]candidate, 0, len(t.order))
	for _, tr := range t.order {
		mt := t.measure(tr)
		if m.thresholds.admits(mt) {
			kept = append(kept, candidate{triple: tr, metrics: mt})
		}
	}

	// Stable: equal confidences keep first-seen order.
	slices.SortStableFunc(kept, func(a, b candidate) int {
		return cmp.Compare(b.confidence, a.confidence)
	})

	for i, c := range kept {
		rs.Rules = append(rs.Rules, newRule(i+1, c))
	}

	m.logger.Debug("mined rule set",
		"name", name,
		"records", t.total,
		"actions", len(t.actions),
		"features", len(t.features),
		"candidates", len(t.order),
		"rules", len(rs.Rules))

	return rs
}

// Mine is a convenience wrapper building a Miner with default options.
func Mine(records []record.ActionRecord, th Thresholds, name string) (*policy.RuleSet, error) {
	m, err := New(th)
	if err != nil {
		return nil, err
	}
	return m.Mine(records, name), nil
}

func newRule(rank int, c candidate) policy.Rule {
	return policy.Rule{
		ID:          policy.FormatID(rank),
		Antecedent:  map[string]string{c.key: c.value},
		Consequent:  c.action,
		Support:     round6(c.support),
		Confidence:  round6(c.confidence),
		Lift:        round6(c.lift),
		Description: Describe(c.key, c.value, c.action, c.support, c.confidence, c.lift),
	}
}

// Describe renders the natural-language summary of a rule. Confidence and
// support are percentages with one decimal, lift has two decimals.
func Describe(key, value, action string, support, confidence, lift float64) string {
	return fmt.Sprintf("When %s=%s, agents perform %s with %.1f%% confidence (support=%.1f%%, lift=%.2f)",
		key, value, action, confidence*100, support*100, lift)
}

// round6 rounds stored metrics to six decimal places.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
