package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// redisClient is the subset of *redis.Client used for publishing.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes readings on a Redis pub/sub channel.
type RedisPublisher struct {
	name    string
	channel string
	timeout time.Duration
	client  redisClient
}

// NewRedis creates a Redis publisher. The connection is established lazily
// on the first publish.
func NewRedis(cfg config.PublisherConfig) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		Protocol: 2,
	})
	return newRedisPublisher(cfg, rdb)
}

func newRedisPublisher(cfg config.PublisherConfig, client redisClient) *RedisPublisher {
	return &RedisPublisher{
		name:    cfg.DisplayName(),
		channel: cfg.Channel,
		timeout: timeoutOrDefault(cfg.Timeout),
		client:  client,
	}
}

// Name returns the publisher name.
func (p *RedisPublisher) Name() string {
	return p.name
}

// Publish sends the reading JSON to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, r reading.Reading) error {
	payload, err := Payload(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", p.channel, err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
