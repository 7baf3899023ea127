package miner

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds is returned by New and Thresholds.Validate when a
// threshold lies outside its domain.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// ThresholdError names the offending threshold. It wraps
// ErrInvalidThresholds.
type ThresholdError struct {
	Name  string
	Value float64
	Want  string
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s: %s=%v, want %s", ErrInvalidThresholds, e.Name, e.Value, e.Want)
}

func (e *ThresholdError) Unwrap() error {
	return ErrInvalidThresholds
}
