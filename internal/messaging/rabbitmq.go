package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "anomaly-trainer/internal/errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

func connectToRabbitMQ(url string, retryDelay time.Duration) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < MaxConnectRetry; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			slog.Info("connected to rabbitmq")
			return conn, nil
		}
		slog.Warn("failed to connect to rabbitmq", "attempt", i+1, "max_attempts", MaxConnectRetry, "error", err)
		time.Sleep(retryDelay)
	}
	slog.Error("failed to connect to rabbitmq", "attempts", MaxConnectRetry, "error", err)
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", MaxConnectRetry, err)
}

// RabbitMQPublisher publishes progress events to a durable queue and waits for
// the broker to confirm each message.
type RabbitMQPublisher struct {
	connLock   sync.Mutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	url        string
	queue      string
	retryDelay time.Duration
	destructor sync.Once
}

func NewRabbitMQPublisher(rabbitMQURL, queue string) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{url: rabbitMQURL, queue: queue, retryDelay: RetryDelay}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	conn, err := connectToRabbitMQ(p.url, p.retryDelay)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		slog.Error("failed to open rabbitmq channel", "error", err)
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if _, err := channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare rabbitmq queue %s: %w", p.queue, err)
	}

	p.conn = conn
	p.channel = channel

	slog.Info("rabbitmq channel opened and queue declared", "queue", p.queue)
	return nil
}

// ensureChannel reopens the connection once if the broker closed it since the
// previous publish.
func (p *RabbitMQPublisher) ensureChannel() error {
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}

	slog.Warn("rabbitmq channel is closed, attempting to reconnect")
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn, p.channel = nil, nil

	if err := p.connect(); err != nil {
		return fmt.Errorf("cannot publish: failed to reconnect: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) PublishProgress(ctx context.Context, event ProgressEvent) error {
	p.connLock.Lock()
	defer p.connLock.Unlock()

	if err := p.ensureChannel(); err != nil {
		return apperrors.Wrap(apperrors.PublishFailed, err, "rabbitmq unavailable")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(apperrors.PublishFailed, err, "failed to marshal progress event")
	}

	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		"",      // exchange (default)
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{QosHeader: QosAtLeastOnce},
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		slog.Error("failed to publish progress, potential connection issue", "queue", p.queue, "error", err)
		return apperrors.Wrapf(apperrors.PublishFailed, err, "failed to publish progress to %s", p.queue)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return apperrors.Wrapf(apperrors.PublishFailed, err, "no confirmation for progress published to %s", p.queue)
	}
	if !acked {
		return apperrors.Newf(apperrors.PublishFailed, "broker rejected progress published to %s", p.queue)
	}

	slog.Info("progress published", "queue", p.queue, "job_guid", event.MainGuid, "percentage", event.Percentage)
	return nil
}

func (p *RabbitMQPublisher) Close() {
	p.destructor.Do(func() {
		p.connLock.Lock()
		defer p.connLock.Unlock()

		if p.conn == nil {
			return
		}
		if err := p.conn.Close(); err != nil {
			slog.Error("error closing rabbitmq connection", "error", err)
		}
	})
}
