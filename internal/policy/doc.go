// Package policy defines the mined rule model: Rule, RuleSet and the
// read-only queries over them.
//
// A RuleSet is produced once per mining run and is never mutated afterwards.
// Its JSON form is the persisted representation and round-trips without
// loss, including rule order.
//
// Digest identifies the mining output independently of when it was
// generated. It hashes a canonical JSON rendering (sorted keys, NFC strings,
// no HTML escaping, metrics as integer micro-units) with a domain prefix.
package policy
