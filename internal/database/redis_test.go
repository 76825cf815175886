package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://localhost:6379")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), "redis://127.0.0.1:1/0?dial_timeout=100ms&max_retries=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis at 127.0.0.1:1")
}
