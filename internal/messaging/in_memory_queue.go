package messaging

import (
	"context"
	"sync"
)

// InMemoryQueue keeps every published event in memory. It backs local runs
// without a broker and lets tests assert the emitted progress sequence.
type InMemoryQueue struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{}
}

func (q *InMemoryQueue) PublishProgress(ctx context.Context, event ProgressEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, event)
	return nil
}

func (q *InMemoryQueue) Events() []ProgressEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := make([]ProgressEvent, len(q.events))
	copy(events, q.events)
	return events
}

func (q *InMemoryQueue) Percentages() []float64 {
	events := q.Events()
	percentages := make([]float64, 0, len(events))
	for _, e := range events {
		percentages = append(percentages, e.Percentage)
	}
	return percentages
}

func (q *InMemoryQueue) Close() {}
