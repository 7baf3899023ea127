// Package store provides SQLite-backed storage for ingested action records
// and mined rule sets.
//
// Tables:
//   - records:   action records, append-only, idempotent on log id
//   - rule_sets: one row per persisted mining run, keyed by a UUIDv7 run id
//   - rules:     the ranked rules of each run
//
// # Ordering
//
// Every read orders explicitly: records by insertion seq, rules by rank,
// runs by generation time then run id. Results never depend on SQLite's
// physical row order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: rules cascade with their run
//
// Context values are stored as JSON text and decoded with json.Number, so
// numbers keep the spelling they were ingested with.
package store
