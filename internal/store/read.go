package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
)

// RunSummary describes a persisted rule set without its rules.
type RunSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	SourceLogs  int              `json:"source_logs"`
	RuleCount   int              `json:"rule_count"`
	GeneratedAt string           `json:"generated_at"`
	Digest      string           `json:"digest"`
	Thresholds  miner.Thresholds `json:"thresholds"`
}

// ReadRecords returns every stored record in ingestion order.
// Returns an empty slice (not nil) when the store holds no records.
func (s *Store) ReadRecords(ctx context.Context) ([]record.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, timestamp, action, context, outcome
		FROM records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.ActionRecord{}
	for rows.Next() {
		var (
			rec     record.ActionRecord
			ctxJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Timestamp, &rec.Action, &ctxJSON, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Context, err = unmarshalContext(ctxJSON)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// LoadRuleSet returns the rule set persisted under id.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) LoadRuleSet(ctx context.Context, id string) (*policy.RuleSet, error) {
	var (
		rs          policy.RuleSet
		generatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, source_logs, generated_at FROM rule_sets WHERE id = ?
	`, id).Scan(&rs.Name, &rs.SourceLogs, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule set %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load rule set %s: %w", id, err)
	}

	rs.GeneratedAt, err = parseTime(generatedAt)
	if err != nil {
		return nil, fmt.Errorf("load rule set %s: %w", id, err)
	}

	rs.Rules, err = s.readRules(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

// LatestRuleSet returns the most recently generated rule set and its id.
// Returns an error wrapping ErrNotFound if the store holds none.
func (s *Store) LatestRuleSet(ctx context.Context) (string, *policy.RuleSet, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM rule_sets
		ORDER BY generated_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("latest rule set: %w", ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("latest rule set: %w", err)
	}

	rs, err := s.LoadRuleSet(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, rs, nil
}

// ListRuleSets returns summaries of every persisted run, oldest first.
func (s *Store) ListRuleSets(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rs.id, rs.name, rs.source_logs, rs.generated_at, rs.digest,
		       rs.min_support, rs.min_confidence, rs.min_lift,
		       (SELECT COUNT(*) FROM rules r WHERE r.rule_set_id = rs.id)
		FROM rule_sets rs
		ORDER BY rs.generated_at ASC, rs.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rule sets: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.Name, &run.SourceLogs, &run.GeneratedAt, &run.Digest,
			&run.Thresholds.MinSupport, &run.Thresholds.MinConfidence, &run.Thresholds.MinLift,
			&run.RuleCount); err != nil {
			return nil, fmt.Errorf("scan rule set: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule sets: %w", err)
	}
	return runs, nil
}

// FindByDigest returns the ids of runs whose mined content equals digest,
// oldest first.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM rule_sets WHERE digest = ?
		ORDER BY generated_at ASC, id COLLATE BINARY ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query digest: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// readRules returns the rules of a run ordered by rank.
func (s *Store) readRules(ctx context.Context, id string) ([]policy.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT policy_id, antecedent_key, antecedent_val, consequent, support, confidence, lift, description
		FROM rules
		WHERE rule_set_id = ?
		ORDER BY rank ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []policy.Rule{}
	for rows.Next() {
		var (
			r          policy.Rule
			key, value string
		)
		if err := rows.Scan(&r.ID, &key, &value, &r.Consequent, &r.Support, &r.Confidence, &r.Lift, &r.Description); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Antecedent = map[string]string{key: value}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}
