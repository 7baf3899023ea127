package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/policyminer/internal/harness"
)

var repoScenarios = filepath.Join("..", "..", "testdata", "scenarios")

const passingScenario = `name: access
description: admins read files
records:
  - {log_id: r1, agent_id: a, action: read_file, context: {role: admin}}
  - {log_id: r2, agent_id: a, action: read_file, context: {role: admin}}
  - {log_id: r3, agent_id: b, action: send_email, context: {role: user}}
assertions:
  - type: rule_present
    key: role
    value: admin
    action: read_file
`

const failingScenario = `name: wrong
description: expects a rule that cannot be mined
records:
  - {log_id: r1, agent_id: a, action: read_file, context: {role: admin}}
assertions:
  - type: rule_present
    key: role
    value: guest
    action: read_file
`

func newTestCmd(format string, args ...string) (*bytes.Buffer, func() error) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, run := newTestCmd("text")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, run := newTestCmd("text", "/nonexistent/scenarios")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	buf, run := newTestCmd("text", t.TempDir())

	require.NoError(t, run())
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	buf, run := newTestCmd("json", t.TempDir())

	require.NoError(t, run())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandRepositoryScenarios(t *testing.T) {
	buf, run := newTestCmd("text", repoScenarios)

	require.NoError(t, run())
	out := buf.String()
	assert.Contains(t, out, "✓ tutorial")
	assert.Contains(t, out, "✓ uniform")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	buf, run := newTestCmd("text", repoScenarios, "--filter", "uni*")

	require.NoError(t, run())
	assert.Contains(t, buf.String(), "✓ uniform")
	assert.NotContains(t, buf.String(), "tutorial")
	assert.Contains(t, buf.String(), "1 total")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, run := newTestCmd("text", repoScenarios, "--filter", "[")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "access.yaml", passingScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	buf, run := newTestCmd("text", dir)

	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := buf.String()
	assert.Contains(t, out, "✓ access")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "assertion 0:")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	buf, run := newTestCmd("json", dir)

	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandInvalidScenarioFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nbogus: true\n")

	buf, run := newTestCmd("text", dir)

	err := run()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "access.yaml", passingScenario)

	buf, run := newTestCmd("text", dir, "--update")
	require.NoError(t, run())
	assert.Contains(t, buf.String(), "✓ access (golden updated)")

	goldenPath := harness.GoldenPath(path)
	assert.FileExists(t, goldenPath)

	// A second run compares against the file just written.
	buf, run = newTestCmd("json", dir)
	require.NoError(t, run())

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, 2, resp.Data.Scenarios[0].Policies)
	assert.Len(t, resp.Data.Scenarios[0].Digest, 64)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "access.yaml", passingScenario)
	goldenPath := harness.GoldenPath(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0755))
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"name":"stale"}`), 0644))

	buf, run := newTestCmd("text", dir)

	err := run()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "do not match golden file")
}
