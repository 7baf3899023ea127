package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/policyminer/internal/miner"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/tutorial.yaml")
	require.NoError(t, err)

	assert.Equal(t, "tutorial", s.Name)
	assert.Equal(t, miner.Thresholds{MinSupport: 0.1, MinConfidence: 0.5, MinLift: 1.0}, s.Thresholds)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "logs", "tutorial.jsonl"), s.LogsPath())
	require.Len(t, s.Assertions, 6)
	assert.Equal(t, AssertRuleCount, s.Assertions[0].Type)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 6, *s.Assertions[0].Count)
}

func TestLoadScenario_InlineRecords(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/access_patterns.yaml")
	require.NoError(t, err)

	assert.Empty(t, s.LogsPath())
	require.Len(t, s.Records, 4)
	assert.Equal(t, "r1", s.Records[0]["log_id"])
}

func TestLoadScenario_PartialThresholdsKeepDefaults(t *testing.T) {
	path := writeScenario(t, `
name: partial
description: only support overridden
thresholds:
  min_support: 0.2
records: []
assertions:
  - type: rule_count
    count: 0
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	want := miner.DefaultThresholds()
	want.MinSupport = 0.2
	assert.Equal(t, want, s.Thresholds)
}

func TestLoadScenario_AbsoluteLogsPath(t *testing.T) {
	abs, err := filepath.Abs("testdata/scenarios/logs/tutorial.jsonl")
	require.NoError(t, err)

	s, err := ParseScenario([]byte("name: abs\ndescription: d\nlogs: " + abs + "\nassertions:\n  - type: rule_count\n    count: 6\n"))
	require.NoError(t, err)
	assert.Equal(t, abs, s.LogsPath())
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			content: "description: d\nassertions:\n  - type: rule_count\n    count: 0\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nassertions:\n  - type: rule_count\n    count: 0\n",
			wantErr: "description is required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: d\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "records and logs",
			content: "name: x\ndescription: d\nlogs: a.jsonl\nrecords:\n  - {log_id: a}\nassertions:\n  - type: rule_count\n    count: 0\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: d\nassertions:\n  - type: rule_exists\n",
			wantErr: `unknown assertion type "rule_exists"`,
		},
		{
			name:    "rule_count without count",
			content: "name: x\ndescription: d\nassertions:\n  - type: rule_count\n",
			wantErr: "rule_count requires count",
		},
		{
			name:    "rule_absent with metrics",
			content: "name: x\ndescription: d\nassertions:\n  - {type: rule_absent, key: k, value: v, action: a, lift: 2}\n",
			wantErr: "does not take metrics",
		},
		{
			name:    "rule_present without key",
			content: "name: x\ndescription: d\nassertions:\n  - {type: rule_present, action: a}\n",
			wantErr: "requires key and action",
		},
		{
			name:    "invalid threshold",
			content: "name: x\ndescription: d\nthresholds: {min_support: 2}\nassertions:\n  - type: rule_count\n    count: 0\n",
			wantErr: "min_support",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_InvalidThresholdWrapsSentinel(t *testing.T) {
	_, err := ParseScenario([]byte("name: x\ndescription: d\nthresholds: {min_lift: -1}\nassertions:\n  - type: rule_count\n    count: 0\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, miner.ErrInvalidThresholds))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
