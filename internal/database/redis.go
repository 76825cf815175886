// Package database holds connections to the shared stores used across replicas.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Redis wraps the client backing the shared rate limit windows
type Redis struct {
	client *redis.Client
	addr   string
}

// NewRedis parses redisURL and verifies the server answers within pingTimeout
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	r := &Redis{client: client, addr: opts.Addr}

	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

// Client returns the underlying Redis client
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Addr is the host:port the client dials
func (r *Redis) Addr() string {
	return r.addr
}

// Ping checks the connection, bounded by pingTimeout
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis at %s: %w", r.addr, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
