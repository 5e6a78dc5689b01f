package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of a go-redis client the Redis sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink publishes every record as JSON on prefix+event[.symbol].
type RedisSink struct {
	client Publisher
	prefix string
}

// NewRedisSink creates a sink publishing through client.
func NewRedisSink(client Publisher, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the pub/sub channel a record is published on.
func (s *RedisSink) Channel(r Record) string {
	if r.Symbol == "" {
		return s.prefix + r.Event
	}
	return s.prefix + r.Event + "." + r.Symbol
}

// Write publishes each record. It stops at the first failure.
func (s *RedisSink) Write(ctx context.Context, batch []Record) error {
	for _, r := range batch {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", r.ID, err)
		}
		if err := s.client.Publish(ctx, s.Channel(r), payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", s.Channel(r), err)
		}
	}
	return nil
}
