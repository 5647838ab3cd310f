package messaging

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/schollz/progressbar/v3"
)

// ConsolePublisher renders job progress as a terminal progress bar. It is
// meant for local runs where no messaging service is bound.
type ConsolePublisher struct {
	bar *progressbar.ProgressBar
}

func NewConsolePublisher(w io.Writer, description string) *ConsolePublisher {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() {
			io.WriteString(w, "\n") //nolint:errcheck
		}),
	)
	return &ConsolePublisher{bar: bar}
}

func (p *ConsolePublisher) PublishProgress(ctx context.Context, event ProgressEvent) error {
	value := int(math.Round(event.Percentage))
	if err := p.bar.Set(min(max(value, 0), 100)); err != nil {
		slog.Warn("error rendering progress bar", "error", err)
	}
	return nil
}

func (p *ConsolePublisher) Current() float64 {
	return float64(p.bar.State().CurrentNum)
}

func (p *ConsolePublisher) Close() {
	if err := p.bar.Close(); err != nil {
		slog.Warn("error closing progress bar", "error", err)
	}
}
