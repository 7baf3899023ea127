package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed-width so generated_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// marshalContext converts a record context to JSON TEXT with HTML escaping
// disabled. encoding/json sorts map keys, so equal contexts produce equal
// text.
func marshalContext(ctx map[string]any) (string, error) {
	if len(ctx) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ctx); err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalContext parses JSON TEXT into a context map. Numbers decode as
// json.Number to keep their original spelling.
func unmarshalContext(data string) (map[string]any, error) {
	ctx := map[string]any{}
	if data == "" || data == "{}" {
		return ctx, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&ctx); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return ctx, nil
}
