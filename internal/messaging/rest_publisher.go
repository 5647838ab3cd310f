package messaging

import (
	"context"
	"log/slog"
	"time"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/go-resty/resty/v2"
)

type RestPublisherConfig struct {
	Credentials MessagingCredentials
	Marker      string
	Route       QueueRoute
	Timeout     time.Duration
}

// RestPublisher posts progress events to the messaging service REST API. Each
// publish exchanges a fresh token, selects the REST endpoint and posts the
// event with at-least-once quality of service.
type RestPublisher struct {
	client    *resty.Client
	tokens    TokenSource
	protocols []ProtocolEndpoint
	match     ProtocolMatcher
	route     QueueRoute
}

func NewRestPublisher(cfg RestPublisherConfig) *RestPublisher {
	client := resty.New().SetTimeout(cfg.Timeout)

	marker := cfg.Marker
	if marker == "" {
		marker = DefaultProtocolMarker
	}

	return &RestPublisher{
		client:    client,
		tokens:    NewClientCredentialsExchanger(cfg.Credentials, client.GetClient()),
		protocols: cfg.Credentials.Protocols,
		match:     ContainsMarker(marker),
		route:     cfg.Route,
	}
}

func (p *RestPublisher) PublishProgress(ctx context.Context, event ProgressEvent) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint, err := SelectEndpoint(p.protocols, p.match)
	if err != nil {
		return err
	}
	url := p.route.Url(endpoint)

	res, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader(QosHeader, QosAtLeastOnce).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(url)
	if err != nil {
		return apperrors.Wrapf(apperrors.PublishFailed, err, "error publishing progress to %s", url)
	}
	if !res.IsSuccess() {
		return apperrors.Newf(apperrors.PublishFailed, "progress publish to %s returned %s: %s", url, res.Status(), res.String())
	}

	slog.Info("progress published", "job_guid", event.MainGuid, "percentage", event.Percentage, "status", res.StatusCode())
	return nil
}

func (p *RestPublisher) Close() {}
