package core

import (
	"context"
	"log/slog"

	"anomaly-trainer/internal/core/types"
	"anomaly-trainer/internal/messaging"
)

// ProgressTracker accumulates the completion percentage of a job. Each
// completed algorithm adds 100/total by floating point addition, so the last
// value can differ from 100 by rounding error.
type ProgressTracker struct {
	increment float64
	current   float64
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{increment: 100 / float64(total)}
}

// Next is the percentage reached once the running algorithm completes.
func (t *ProgressTracker) Next() float64 {
	return t.current + t.increment
}

func (t *ProgressTracker) Advance() float64 {
	t.current += t.increment
	return t.current
}

func (t *ProgressTracker) Current() float64 {
	return t.current
}

type ProgressNotifier struct {
	publisher messaging.Publisher
}

func NewProgressNotifier(publisher messaging.Publisher) *ProgressNotifier {
	return &ProgressNotifier{publisher: publisher}
}

func (n *ProgressNotifier) Notify(ctx context.Context, job types.TrainingJob, run types.AlgorithmRun, percentage float64) error {
	event := messaging.ProgressEvent{
		NodeId:     job.NodeId,
		Plant:      job.Plant,
		MainGuid:   job.Guid,
		Percentage: percentage,
	}

	if err := n.publisher.PublishProgress(ctx, event); err != nil {
		return err
	}

	slog.Info("progress notified", "job_guid", job.Guid, "algorithm", run.Algorithm, "percentage", percentage)
	return nil
}
