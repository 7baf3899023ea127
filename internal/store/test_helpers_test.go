package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/testutil"
)

// createTestStore creates a new temp-dir store with sequential run ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDGenerator("")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mineTutorial mines the tutorial records with a frozen clock offset by
// the given number of seconds from the test epoch.
func mineTutorial(t *testing.T, offset int) *policy.RuleSet {
	t.Helper()
	at := testutil.Epoch.Add(time.Duration(offset) * time.Second)
	m, err := miner.New(tutorialThresholds(), miner.WithClock(testutil.NewFrozenClock(at)))
	if err != nil {
		t.Fatalf("miner.New() failed: %v", err)
	}
	return m.Mine(testutil.TutorialRecords(), "Tutorial")
}

func tutorialThresholds() miner.Thresholds {
	return miner.Thresholds{MinSupport: 0.1, MinConfidence: 0.5, MinLift: 1.0}
}
