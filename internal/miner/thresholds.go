package miner

import "math"

// Default thresholds used by the CLI when none are given.
const (
	DefaultMinSupport    = 0.05
	DefaultMinConfidence = 0.6
	DefaultMinLift       = 1.0
)

// Thresholds bound which triples become rules. All comparisons are
// inclusive.
type Thresholds struct {
	MinSupport    float64 `json:"min_support" yaml:"min_support"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	MinLift       float64 `json:"min_lift" yaml:"min_lift"`
}

// DefaultThresholds returns the CLI defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSupport:    DefaultMinSupport,
		MinConfidence: DefaultMinConfidence,
		MinLift:       DefaultMinLift,
	}
}

// Validate checks MinSupport and MinConfidence lie in [0,1] and MinLift is
// non-negative. NaN is rejected everywhere.
func (t Thresholds) Validate() error {
	if !unit(t.MinSupport) {
		return &ThresholdError{Name: "min_support", Value: t.MinSupport, Want: "a value in [0,1]"}
	}
	if !unit(t.MinConfidence) {
		return &ThresholdError{Name: "min_confidence", Value: t.MinConfidence, Want: "a value in [0,1]"}
	}
	if math.IsNaN(t.MinLift) || t.MinLift < 0 {
		return &ThresholdError{Name: "min_lift", Value: t.MinLift, Want: "a value >= 0"}
	}
	return nil
}

// admits reports whether the metrics of a triple pass every threshold.
func (t Thresholds) admits(m metrics) bool {
	return m.support >= t.MinSupport &&
		m.confidence >= t.MinConfidence &&
		m.lift >= t.MinLift
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
