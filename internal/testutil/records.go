package testutil

import (
	"fmt"

	"github.com/roach88/policyminer/internal/record"
)

// Record builds a valid action record with the given context pairs, given
// as alternating keys and values.
func Record(id, agent, action string, kv ...any) record.ActionRecord {
	if len(kv)%2 != 0 {
		panic("testutil.Record: odd number of context arguments")
	}
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		ctx[kv[i].(string)] = kv[i+1]
	}
	return record.ActionRecord{
		ID:        id,
		AgentID:   agent,
		Timestamp: Epoch.Format("2006-01-02T15:04:05Z07:00"),
		Action:    action,
		Context:   ctx,
		Outcome:   record.DefaultOutcome,
	}
}

// TutorialRecords is the ten-record sample log:
//
//	agent_A ×4  read_file      role=admin   env=prod
//	agent_A ×1  delete_record  role=admin   env=prod     (denied)
//	agent_B ×1  read_file      role=user    env=staging
//	agent_B ×2  send_email     role=user    env=staging
//	agent_C ×1  audit_log      role=auditor env=prod
//	agent_D ×1  read_file      role=viewer  env=prod
//
// With min support 0.1, min confidence 0.5 and min lift 1.0 it yields six
// rules, led by the two single-occurrence features that sit exactly on the
// support boundary.
func TutorialRecords() []record.ActionRecord {
	var recs []record.ActionRecord
	add := func(agent, action, role, env string) {
		id := fmt.Sprintf("log_%04d", len(recs)+1)
		recs = append(recs, Record(id, agent, action, "role", role, "env", env))
	}

	for i := 0; i < 4; i++ {
		add("agent_A", "read_file", "admin", "prod")
	}
	add("agent_A", "delete_record", "admin", "prod")
	recs[len(recs)-1].Outcome = "denied"

	add("agent_B", "read_file", "user", "staging")
	add("agent_B", "send_email", "user", "staging")
	add("agent_B", "send_email", "user", "staging")

	add("agent_C", "audit_log", "auditor", "prod")
	add("agent_D", "read_file", "viewer", "prod")

	return recs
}

// UniformRecords returns n records that share one action and one context
// value, so every mined metric carries no differential signal.
func UniformRecords(n int) []record.ActionRecord {
	recs := make([]record.ActionRecord, n)
	for i := range recs {
		recs[i] = Record(fmt.Sprintf("log_%04d", i+1), "agent_alpha", "read_file", "role", "admin")
	}
	return recs
}
