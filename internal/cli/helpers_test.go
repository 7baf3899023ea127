package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// tutorialLogs is the sample log shared with the repository examples.
var tutorialLogs = filepath.Join("..", "..", "testdata", "logs", "tutorial.jsonl")

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// copyTutorialLogs copies the sample log into a temp dir so commands that
// write next to it leave the repository untouched.
func copyTutorialLogs(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(tutorialLogs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "behavior.jsonl")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// tutorialArgs are the thresholds that yield six rules on the sample log.
var tutorialArgs = []string{"--min-support", "0.1", "--min-confidence", "0.5", "--min-lift", "1.0"}
