package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 4 * 1024 * 1024

// Problem describes a rejected input entry.
type Problem struct {
	Line   int    `json:"line"` // 1-based line (JSONL) or index+1 (maps)
	Reason string `json:"reason"`
}

// ParseResult is the outcome of an ingestion pass: the accepted records in
// input order plus a count of rejected entries.
type ParseResult struct {
	Records  []ActionRecord
	Rejected int
	Problems []Problem
}

func (r *ParseResult) reject(line int, reason string) {
	r.Rejected++
	r.Problems = append(r.Problems, Problem{Line: line, Reason: reason})
}

// Parser turns raw behavior log entries into validated records.
type Parser struct {
	// Now stamps records without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewParser returns a parser using the wall clock for missing timestamps.
func NewParser() *Parser {
	return &Parser{Now: time.Now}
}

// ParseFile parses a JSONL file. See ParseJSONL.
func (p *Parser) ParseFile(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open logs: %w", err)
	}
	defer f.Close()

	return p.ParseJSONL(f)
}

// ParseJSONL reads one JSON object per line. Blank lines are ignored;
// malformed or invalid lines are skipped and counted. Only read failures are
// returned as errors.
func (p *Parser) ParseJSONL(r io.Reader) (ParseResult, error) {
	result := ParseResult{Records: []ActionRecord{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		rec, err := p.decode(raw)
		if err != nil {
			result.reject(line, err.Error())
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read logs: %w", err)
	}

	return result, nil
}

// ParseMaps converts already-decoded entries, applying the same validation
// as ParseJSONL.
func (p *Parser) ParseMaps(entries []map[string]any) ParseResult {
	result := ParseResult{Records: []ActionRecord{}}

	for i, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			result.reject(i+1, fmt.Sprintf("encode entry: %v", err))
			continue
		}
		rec, err := p.decode(raw)
		if err != nil {
			result.reject(i+1, err.Error())
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return result
}

// wireRecord mirrors ActionRecord but keeps required fields as pointers so a
// missing field and a blank one can be told apart in error messages.
type wireRecord struct {
	ID        *string        `json:"log_id"`
	AgentID   *string        `json:"agent_id"`
	Timestamp string         `json:"timestamp"`
	Action    *string        `json:"action"`
	Context   map[string]any `json:"context"`
	Outcome   string         `json:"outcome"`
}

func (p *Parser) decode(raw []byte) (ActionRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var w wireRecord
	if err := dec.Decode(&w); err != nil {
		return ActionRecord{}, fmt.Errorf("invalid JSON: %w", err)
	}

	required := []struct {
		field string
		value *string
	}{
		{"log_id", w.ID},
		{"agent_id", w.AgentID},
		{"action", w.Action},
	}
	for _, req := range required {
		if req.value == nil {
			return ActionRecord{}, &ValidationError{Field: req.field, Message: "is required"}
		}
	}

	rec := ActionRecord{
		ID:        *w.ID,
		AgentID:   *w.AgentID,
		Timestamp: w.Timestamp,
		Action:    *w.Action,
		Context:   w.Context,
		Outcome:   w.Outcome,
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	rec = rec.Normalize(now)
	if err := rec.Validate(); err != nil {
		return ActionRecord{}, err
	}

	return rec, nil
}
