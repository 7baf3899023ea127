package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_AccessPatterns(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "access_patterns"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_Tutorial(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "tutorial"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "tutorial.golden"),
		GoldenPath(filepath.Join("scenarios", "tutorial.yaml")))
}

func TestCompareGolden_CheckedInFiles(t *testing.T) {
	for _, name := range []string{"access_patterns", "tutorial"} {
		t.Run(name, func(t *testing.T) {
			scenarioFile := filepath.Join("testdata", "scenarios", name+".yaml")
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)

			match, err := CompareGolden(GoldenPath(scenarioFile), result)
			require.NoError(t, err)
			assert.True(t, match)
		})
	}
}

func TestUpdateGolden_RoundTrip(t *testing.T) {
	result, err := Run(loadTestScenario(t, "uniform"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden", "uniform.golden")
	_, err = CompareGolden(path, result)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, UpdateGolden(path, result))

	match, err := CompareGolden(path, result)
	require.NoError(t, err)
	assert.True(t, match)

	// A different rule set no longer matches.
	other, err := Run(loadTestScenario(t, "access_patterns"))
	require.NoError(t, err)
	match, err = CompareGolden(path, other)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestSnapshot_ExcludesTimestamp(t *testing.T) {
	result, err := Run(loadTestScenario(t, "access_patterns"))
	require.NoError(t, err)

	data, err := Snapshot(result.RuleSet)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "generated_at")
	assert.Contains(t, string(data), `"source_logs":4`)
}
