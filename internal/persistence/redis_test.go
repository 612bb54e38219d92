package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredRedis(t *testing.T) {
	var r *Redis
	assert.ErrorIs(t, r.Ping(context.Background()), errRedisNotConfigured)
	assert.ErrorIs(t, r.Publish(context.Background(), "portal:events", []byte("{}")).Err(), errRedisNotConfigured)
	assert.NotPanics(t, r.Close)
}
