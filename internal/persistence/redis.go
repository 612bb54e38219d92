package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/config"
)

const redisDialCheck = 3 * time.Second

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis carries the pub/sub connection used for lifecycle notifications.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client and pings it once. An unreachable server is only
// logged: notifications are best effort and must not block startup.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialCheck)
	defer cancel()
	fields := []zap.Field{zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB)}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; notifications will be dropped", append(fields, zap.Error(err))...)
	} else {
		logger.Info("connected to redis", fields...)
	}

	return &Redis{Client: client}
}

// Publish sends message on channel. A nil receiver reports errRedisNotConfigured
// through the returned command so callers handle it like any delivery failure.
func (r *Redis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if r == nil || r.Client == nil {
		return redis.NewIntResult(0, errRedisNotConfigured)
	}
	return r.Client.Publish(ctx, channel, message)
}

func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping backs the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}
