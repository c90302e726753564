// Package events mirrors session lifecycle and read results onto
// Redis, and drains a Redis list of operator commands into typed
// Session calls. Both directions are optional: pkg/session and
// pkg/manager never import this package.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is a thin wrapper around the go-redis client exposing
// just the hash/pubsub/list primitives this package needs.
type redisClient struct {
	client *redis.Client
	ctx    context.Context
}

func newRedisClient(addr, password string, db int) (*redisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisClient{client: client, ctx: ctx}, nil
}

// writeAndPublishBytes writes a binary value into a hash field and
// publishes a change notification on the same key, in one pipeline.
func (c *redisClient) writeAndPublishBytes(key, field string, value []byte) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, field)
	_, err := pipe.Exec(c.ctx)
	return err
}

func (c *redisClient) writeAndPublishString(key, field, value string) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%s", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

func (c *redisClient) brPop(timeout time.Duration, key string) ([]string, error) {
	result, err := c.client.BRPop(c.ctx, timeout, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected result from BRPOP: %v", result)
	}
	return result, nil
}

func (c *redisClient) close() error {
	return c.client.Close()
}
