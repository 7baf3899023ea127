// Package record provides the action-record model consumed by the miner and
// the ingestion layer that turns raw behavior logs into validated records.
//
// Ingestion is lenient: malformed or invalid entries are skipped and
// reported through ParseResult rather than aborting the whole load.
// Everything that reaches the miner satisfies ActionRecord.Validate.
//
// Context values are compared through Stringify. That conversion is lossy on
// purpose: nested maps and slices collapse to their compact JSON text, and
// numbers keep their source spelling, so 1 and 1.0 are different features.
package record
