package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Peek())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFrozenClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(at)

	assert.Equal(t, at, clock.Now())
	assert.Equal(t, at, clock.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Second), clock.Peek())
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "test-run-0001", gen.Generate())
	assert.Equal(t, "test-run-0002", gen.Generate())

	custom := NewSequentialIDGenerator("run")
	assert.Equal(t, "run-0001", custom.Generate())
}

func TestTutorialRecords(t *testing.T) {
	recs := TutorialRecords()
	require.Len(t, recs, 10)

	for _, r := range recs {
		require.NoError(t, r.Validate())
	}
	assert.Equal(t, "denied", recs[4].Outcome)
	assert.Equal(t, "log_0010", recs[9].ID)
}

func TestUniformRecords(t *testing.T) {
	recs := UniformRecords(4)
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Equal(t, "read_file", r.Action)
		assert.Equal(t, "admin", r.Context["role"])
	}
}

func TestRecord_OddArgsPanics(t *testing.T) {
	assert.Panics(t, func() { Record("l", "a", "x", "role") })
}
