package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cimillas/clinic-booking/internal/domain"
)

// DefaultChannel is the pub/sub channel subscribers listen on.
const DefaultChannel = "clinic.booking.events"

// RedisPublisher broadcasts events over Redis pub/sub. Failures are
// logged and swallowed; subscribers that need stronger guarantees than
// at-least-once-while-connected should not sit behind this publisher.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("marshal event")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("publish event")
	}
}
