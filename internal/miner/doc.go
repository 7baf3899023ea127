// Package miner extracts single-antecedent association rules from action
// records.
//
// For every observed (context key, context value, action) triple the miner
// computes
//
//	support    = joint / total
//	confidence = joint / feature
//	lift       = confidence / (action / total)
//
// where joint counts records carrying both the feature and the action,
// feature counts records carrying the feature and action counts records
// with the action. Only triples that occur in the data are considered, so
// the cost grows with the number of distinct observed triples rather than
// with keys × values × actions.
//
// Rules meeting all three thresholds (inclusive) are ranked by confidence,
// highest first. Equal confidences keep the order in which their triples
// were first seen, which makes the output a pure function of the input.
//
// A Miner holds only its thresholds and is safe for concurrent use.
package miner
