package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Encode writes rs as indented JSON.
func Encode(w io.Writer, rs *RuleSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("encode rule set: %w", err)
	}
	return nil
}

// Decode reads a rule set from r, rejecting unknown fields and values that
// break the rule invariants.
func Decode(r io.Reader) (*RuleSet, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var rs RuleSet
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	if rs.Rules == nil {
		rs.Rules = []Rule{}
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	return &rs, nil
}

// WriteFile persists rs as JSON at path.
func WriteFile(path string, rs *RuleSet) error {
	var buf bytes.Buffer
	if err := Encode(&buf, rs); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write rule set: %w", err)
	}
	return nil
}

// ReadFile loads a rule set previously written by WriteFile.
func ReadFile(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
