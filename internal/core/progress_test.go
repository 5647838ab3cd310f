package core

import (
	"context"
	"testing"

	"anomaly-trainer/internal/core/types"
	"anomaly-trainer/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker(t *testing.T) {
	for k := 1; k <= 12; k++ {
		tracker := NewProgressTracker(k)
		for i := 1; i <= k; i++ {
			next := tracker.Next()
			assert.Equal(t, next, tracker.Advance())
			assert.InDelta(t, 100*float64(i)/float64(k), next, 1e-9, "k=%d i=%d", k, i)
		}
		assert.InDelta(t, 100.0, tracker.Current(), 1e-9)
	}
}

func TestProgressTracker_Monotonic(t *testing.T) {
	tracker := NewProgressTracker(7)
	previous := 0.0
	for i := 0; i < 7; i++ {
		current := tracker.Advance()
		assert.Greater(t, current, previous)
		previous = current
	}
}

func TestProgressNotifier(t *testing.T) {
	queue := messaging.NewInMemoryQueue()
	notifier := NewProgressNotifier(queue)

	job := types.TrainingJob{Guid: "job-1", Plant: "P1", NodeId: "N1", Algorithms: []string{"iforest"}}
	run := types.AlgorithmRun{JobGuid: "job-1", Algorithm: "iforest", ModelGuid: "m-1"}

	require.NoError(t, notifier.Notify(context.Background(), job, run, 100))
	assert.Equal(t, []messaging.ProgressEvent{{NodeId: "N1", Plant: "P1", MainGuid: "job-1", Percentage: 100}}, queue.Events())
}
