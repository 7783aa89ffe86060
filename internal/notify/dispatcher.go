package notify

import (
	"context"
	"encoding/json"
	"time"

	redisutil "atelier-commission/pkg/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher appends a message to a named stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, values map[string]interface{}) (string, error)
}

// StreamPublisher publishes onto Redis Streams; the notification worker that
// renders and delivers templates consumes the stream elsewhere.
type StreamPublisher struct {
	client *redis.Client
}

func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

func (p *StreamPublisher) Publish(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	return redisutil.PublishToStream(ctx, p.client, stream, values)
}

// Dispatcher fires notification events without blocking the caller. Trigger is
// fire-and-forget: publish errors are logged and never surface to the
// operation that triggered them, so a notification outage cannot fail an
// admission or a decision.
type Dispatcher struct {
	pub     Publisher
	stream  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(pub Publisher, stream string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pub: pub, stream: stream, timeout: timeout, logger: logger}
}

// Trigger publishes the event for subscriberID asynchronously.
func (d *Dispatcher) Trigger(eventName, subscriberID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn("Failed to marshal notification payload",
			zap.String("event", eventName),
			zap.String("subscriber_id", subscriberID),
			zap.Error(err),
		)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		id, err := d.pub.Publish(ctx, d.stream, map[string]interface{}{
			"event":         eventName,
			"subscriber_id": subscriberID,
			"payload":       string(data),
			"timestamp":     time.Now().Unix(),
		})
		if err != nil {
			d.logger.Warn("Failed to publish notification event",
				zap.String("event", eventName),
				zap.String("subscriber_id", subscriberID),
				zap.Error(err),
			)
			return
		}
		d.logger.Debug("Published notification event",
			zap.String("event", eventName),
			zap.String("subscriber_id", subscriberID),
			zap.String("stream_id", id),
		)
	}()
}
