package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lmrelay/internal/models"
)

const defaultPublishTimeout = 2 * time.Second

// Publisher announces completed relay exchanges.
type Publisher interface {
	Publish(ctx context.Context, ev models.ExchangeEvent) error
}

// NopPublisher drops every event. It is used when no Redis URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.ExchangeEvent) error { return nil }

// RedisPublisher sends events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		timeout: defaultPublishTimeout,
	}
}

// Publish is bounded by its own timeout and ignores cancellation of ctx, so
// an event still goes out after the inbound request has finished.
func (p *RedisPublisher) Publish(ctx context.Context, ev models.ExchangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal exchange event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}
