package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
	"github.com/roach88/policyminer/internal/store"
	"github.com/roach88/policyminer/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios against a fresh store with a deterministic clock.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Parse the inline records or the log file
// 2. Mine them with the scenario thresholds
// 3. Persist the records and rule set, then reload the rule set
// 4. Check the reloaded digest and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for store operations.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDGenerator("scenario")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	parsed, err := h.loadRecords(scenario)
	if err != nil {
		return nil, err
	}

	m, err := miner.New(scenario.Thresholds,
		miner.WithClock(testutil.NewFrozenClock(testutil.Epoch)),
		miner.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create miner: %w", err)
	}
	rs := m.Mine(parsed.Records, scenario.Name)

	result := NewResult()
	result.RuleSet = rs
	result.Rejected = parsed.Problems

	result.Digest, err = policy.Digest(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to digest rule set: %w", err)
	}

	if err := h.roundTrip(ctx, parsed.Records, rs, scenario.Thresholds, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(rs, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"records", len(parsed.Records),
		"rejected", parsed.Rejected,
		"rules", len(rs.Rules),
		"pass", result.Pass,
	)
	return result, nil
}

// loadRecords parses the scenario input with the harness clock filling
// missing timestamps.
func (h *Harness) loadRecords(scenario *Scenario) (record.ParseResult, error) {
	p := record.NewParser()
	p.Now = h.clock.Now

	if path := scenario.LogsPath(); path != "" {
		parsed, err := p.ParseFile(path)
		if err != nil {
			return record.ParseResult{}, fmt.Errorf("failed to read logs: %w", err)
		}
		return parsed, nil
	}
	return p.ParseMaps(scenario.Records), nil
}

// roundTrip stores the records and rule set, reloads the rule set, and
// records an error if its digest changed.
func (h *Harness) roundTrip(ctx context.Context, recs []record.ActionRecord, rs *policy.RuleSet, th miner.Thresholds, result *Result) error {
	if _, err := h.store.WriteRecords(ctx, recs); err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}

	runID, err := h.store.SaveRuleSet(ctx, rs, th)
	if err != nil {
		return fmt.Errorf("failed to store rule set: %w", err)
	}

	loaded, err := h.store.LoadRuleSet(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to reload rule set: %w", err)
	}

	digest, err := policy.Digest(loaded)
	if err != nil {
		return fmt.Errorf("failed to digest reloaded rule set: %w", err)
	}
	if digest != result.Digest {
		result.AddError(fmt.Sprintf("stored rule set digest %s does not match mined digest %s", digest, result.Digest))
	}
	return nil
}
