package record

import (
	"fmt"
	"strings"
	"time"
)

// DefaultOutcome is assigned to records that do not carry an outcome label.
const DefaultOutcome = "success"

// ActionRecord is a single agent action observed in context.
type ActionRecord struct {
	ID        string         `json:"log_id"`
	AgentID   string         `json:"agent_id"`
	Timestamp string         `json:"timestamp,omitempty"`
	Action    string         `json:"action"`
	Context   map[string]any `json:"context"`
	Outcome   string         `json:"outcome"`
}

// ValidationError reports the field that made a record invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the record invariants: log id, agent id and action must be
// non-blank.
func (r ActionRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &ValidationError{Field: "log_id", Message: "must not be blank"}
	}
	if strings.TrimSpace(r.AgentID) == "" {
		return &ValidationError{Field: "agent_id", Message: "must not be blank"}
	}
	if strings.TrimSpace(r.Action) == "" {
		return &ValidationError{Field: "action", Message: "must not be blank"}
	}
	return nil
}

// Normalize trims the identifying fields and fills defaults for optional
// ones. now supplies the timestamp for records that have none.
func (r ActionRecord) Normalize(now func() time.Time) ActionRecord {
	r.ID = strings.TrimSpace(r.ID)
	r.AgentID = strings.TrimSpace(r.AgentID)
	r.Action = strings.TrimSpace(r.Action)
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	if r.Outcome == "" {
		r.Outcome = DefaultOutcome
	}
	if r.Timestamp == "" && now != nil {
		r.Timestamp = now().UTC().Format(time.RFC3339Nano)
	}
	return r
}
