package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AcquireRelease(t *testing.T) {
	tracker := NewTracker()

	assert.True(t, tracker.TryAcquire("p1"))
	assert.False(t, tracker.TryAcquire("p1"))

	tracker.Release("p1")
	assert.True(t, tracker.TryAcquire("p1"))
}

func TestTracker_ActiveSorted(t *testing.T) {
	tracker := NewTracker()
	tracker.TryAcquire("charlie")
	tracker.TryAcquire("alpha")
	tracker.TryAcquire("bravo")

	entries := tracker.Active()
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].ProductID)
	assert.Equal(t, "bravo", entries[1].ProductID)
	assert.Equal(t, "charlie", entries[2].ProductID)
	for _, e := range entries {
		assert.False(t, e.StartedAt.IsZero())
	}
}

func TestTracker_ReleaseUnknownIsNoop(t *testing.T) {
	tracker := NewTracker()
	tracker.Release("never-acquired")
	assert.Empty(t, tracker.Active())
}
