package store

import (
	"context"
	"fmt"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
)

// WriteRecords inserts records in order inside one transaction and returns
// how many were new. Uses ON CONFLICT(id) DO NOTHING, so re-ingesting a log
// is a no-op for records already stored.
func (s *Store) WriteRecords(ctx context.Context, records []record.ActionRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write records: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, agent_id, timestamp, action, context, outcome)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("write records: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		ctxJSON, err := marshalContext(rec.Context)
		if err != nil {
			return 0, fmt.Errorf("write record %s: %w", rec.ID, err)
		}
		res, err := stmt.ExecContext(ctx, rec.ID, rec.AgentID, rec.Timestamp, rec.Action, ctxJSON, rec.Outcome)
		if err != nil {
			return 0, fmt.Errorf("write record %s: %w", rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write record %s: rows affected: %w", rec.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write records: commit: %w", err)
	}
	return inserted, nil
}

// SaveRuleSet persists rs with the thresholds it was mined under and
// returns the new run id. The rule rows keep the set's order as rank.
func (s *Store) SaveRuleSet(ctx context.Context, rs *policy.RuleSet, th miner.Thresholds) (string, error) {
	digest, err := policy.Digest(rs)
	if err != nil {
		return "", fmt.Errorf("save rule set: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save rule set: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id := s.idGen.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rule_sets (id, name, source_logs, generated_at, digest, min_support, min_confidence, min_lift)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rs.Name, rs.SourceLogs, formatTime(rs.GeneratedAt), digest, th.MinSupport, th.MinConfidence, th.MinLift)
	if err != nil {
		return "", fmt.Errorf("save rule set: %w", err)
	}

	for i, r := range rs.Rules {
		key, value := r.Feature()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rules
			(rule_set_id, rank, policy_id, antecedent_key, antecedent_val, consequent, support, confidence, lift, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i+1, r.ID, key, value, r.Consequent, r.Support, r.Confidence, r.Lift, r.Description)
		if err != nil {
			return "", fmt.Errorf("save rule %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save rule set: commit: %w", err)
	}
	return id, nil
}

// DeleteRuleSet removes a run and its rules. Returns ErrNotFound if the run
// does not exist.
func (s *Store) DeleteRuleSet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rule_sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule set: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule set: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete rule set %s: %w", id, ErrNotFound)
	}
	return nil
}
