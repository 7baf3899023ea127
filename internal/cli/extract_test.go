package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/testutil"
)

func TestExtract_DefaultOutputNextToLogs(t *testing.T) {
	logs := copyTutorialLogs(t)

	out, _, err := execute(t, append([]string{"extract", "--logs", logs}, tutorialArgs...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Parsed 10 valid log entries.")
	assert.Contains(t, out, "Mined 6 policies.")
	assert.NotContains(t, out, "malformed")

	dest := filepath.Join(filepath.Dir(logs), "policies.json")
	assert.Contains(t, out, "Saved policy set to "+dest)

	rs, err := policy.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Mined Policy Set", rs.Name)
	assert.Equal(t, 10, rs.SourceLogs)
	require.Len(t, rs.Rules, 6)
	assert.Equal(t, "policy_0001", rs.Rules[0].ID)
	assert.Equal(t, map[string]string{"role": "auditor"}, rs.Rules[0].Antecedent)
}

func TestExtract_PrintsTopTen(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	// 12 distinct roles, each with its own action: 12 perfect rules.
	for i := 0; i < 12; i++ {
		lines = append(lines, `{"log_id": "l`+string(rune('a'+i))+`", "agent_id": "x", "action": "act_`+string(rune('a'+i))+`", "context": {"role": "r`+string(rune('a'+i))+`"}}`)
	}
	logs := filepath.Join(dir, "wide.jsonl")
	require.NoError(t, os.WriteFile(logs, []byte(strings.Join(lines, "\n")), 0644))

	out, _, err := execute(t, "extract", "--logs", logs, "--min-support", "0.05")
	require.NoError(t, err)

	assert.Contains(t, out, "Mined 12 policies.")
	assert.Contains(t, out, "Total policies: 12")
	assert.Contains(t, out, "[policy_0010]")
	assert.NotContains(t, out, "[policy_0011]")
}

func TestExtract_OutputFlagAndName(t *testing.T) {
	logs := copyTutorialLogs(t)
	dest := filepath.Join(t.TempDir(), "nested", "mined.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))

	args := append([]string{"extract", "--logs", logs, "-o", dest, "--name", "Tutorial"}, tutorialArgs...)
	_, _, err := execute(t, args...)
	require.NoError(t, err)

	rs, err := policy.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Tutorial", rs.Name)

	_, err = os.Stat(filepath.Join(filepath.Dir(logs), "policies.json"))
	assert.True(t, os.IsNotExist(err), "default output should not be written")
}

func TestExtract_DefaultThresholds(t *testing.T) {
	logs := copyTutorialLogs(t)

	// The defaults admit the same six rules.
	out, _, err := execute(t, "extract", "--logs", logs)
	require.NoError(t, err)
	assert.Contains(t, out, "Mined 6 policies.")
}

func TestExtract_StrictThresholdsYieldEmptySet(t *testing.T) {
	logs := copyTutorialLogs(t)

	out, _, err := execute(t, "extract", "--logs", logs, "--min-support", "0.9")
	require.NoError(t, err)
	assert.Contains(t, out, "Mined 0 policies.")

	rs, err := policy.ReadFile(filepath.Join(filepath.Dir(logs), "policies.json"))
	require.NoError(t, err)
	assert.NotNil(t, rs.Rules)
	assert.Empty(t, rs.Rules)
}

func TestExtract_MalformedLinesSkipped(t *testing.T) {
	logs := copyTutorialLogs(t)
	f, err := os.OpenFile(logs, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n{\"log_id\": \"x\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, errOut, err := execute(t, append([]string{"extract", "--logs", logs, "-v"}, tutorialArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed 10 valid log entries.")
	assert.Contains(t, out, "Skipped 2 malformed entries.")
	assert.Contains(t, out, "Mined 6 policies.")
	assert.Contains(t, errOut, "Skipped line 11")
	assert.Contains(t, errOut, "Skipped line 12")
}

func TestExtract_JSON(t *testing.T) {
	logs := copyTutorialLogs(t)

	out, _, err := execute(t, append([]string{"--format", "json", "extract", "--logs", logs}, tutorialArgs...)...)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExtractResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 10, resp.Data.Parsed)
	assert.Equal(t, 6, resp.Data.Policies)
	assert.Len(t, resp.Data.Digest, 64)
	require.NotNil(t, resp.Data.RuleSet)
	assert.Len(t, resp.Data.RuleSet.Rules, 6)
}

func TestExtract_ConfigFileAndEnv(t *testing.T) {
	logs := copyTutorialLogs(t)
	cfgPath := filepath.Join(t.TempDir(), "policyminer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("min_support: 0.9\nname: From Config\n"), 0644))

	// The environment beats the file; flags would beat both.
	t.Setenv("POLICYMINER_MIN_SUPPORT", "0.1")

	_, _, err := execute(t, "--config", cfgPath, "extract", "--logs", logs, "--min-confidence", "0.5")
	require.NoError(t, err)

	rs, err := policy.ReadFile(filepath.Join(filepath.Dir(logs), "policies.json"))
	require.NoError(t, err)
	assert.Equal(t, "From Config", rs.Name)
	assert.Len(t, rs.Rules, 6)
}

func TestExtract_InvalidThresholds(t *testing.T) {
	logs := copyTutorialLogs(t)

	_, errOut, err := execute(t, "extract", "--logs", logs, "--min-support", "1.5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "Error [E008]")
}

func TestExtract_MissingLogs(t *testing.T) {
	_, errOut, err := execute(t, "extract", "--logs", filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "Error [E005]: logs file not found")
}

func TestExtract_RequiresInput(t *testing.T) {
	_, _, err := execute(t, "extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of the flags in the group [logs db] is required")

	_, _, err = execute(t, "extract", "--logs", "a.jsonl", "--db", "b.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "were all set")
}

func TestExtract_SaveDBThenFromDB(t *testing.T) {
	logs := copyTutorialLogs(t)
	db := filepath.Join(t.TempDir(), "policies.db")

	_, _, err := execute(t, "ingest", "--logs", logs, "--db", db)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "from-db.json")
	out, _, err := execute(t, append([]string{"extract", "--db", db, "-o", dest, "--save-db", db}, tutorialArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed 10 valid log entries.")
	assert.Contains(t, out, "Stored run ")

	fromDB, err := policy.ReadFile(dest)
	require.NoError(t, err)

	fromLogs, _, err := execute(t, append([]string{"--format", "json", "extract", "--logs", logs}, tutorialArgs...)...)
	require.NoError(t, err)
	var resp struct {
		Data ExtractResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(fromLogs), &resp))

	digest, err := policy.Digest(fromDB)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.Digest, digest, "mining stored records must match mining the log")
}

func TestExtract_InjectedClock(t *testing.T) {
	logs := copyTutorialLogs(t)
	buf := &bytes.Buffer{}

	opts := &ExtractOptions{
		RootOptions: &RootOptions{Format: "text"},
		Clock:       testutil.NewFrozenClock(testutil.Epoch),
	}
	cmd := newExtractCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--logs", logs}, tutorialArgs...))

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Generated at: 2024-01-01T00:00:00Z")

	rs, err := policy.ReadFile(filepath.Join(filepath.Dir(logs), "policies.json"))
	require.NoError(t, err)
	assert.True(t, rs.GeneratedAt.Equal(testutil.Epoch))
}
