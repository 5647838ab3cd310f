package messaging

import (
	"context"
	"time"
)

const (
	DefaultProgressQueue = "PredictiveAnalyticsTrainingPercentage"

	// QosHeader asks the broker for at-least-once delivery of a message.
	QosHeader      = "x-qos"
	QosAtLeastOnce = "1"

	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

// ProgressEvent is the message consumed by the workflow engine to render the
// training percentage of a job.
type ProgressEvent struct {
	NodeId     string  `json:"nodeId"`
	Plant      string  `json:"plant"`
	MainGuid   string  `json:"mainGuid"`
	Percentage float64 `json:"percentage"`
}

type Publisher interface {
	PublishProgress(ctx context.Context, event ProgressEvent) error

	Close()
}
