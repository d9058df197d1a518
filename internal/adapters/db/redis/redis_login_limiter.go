package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login:fail:"

// RedisLoginLimiter counts failed logins per identifier inside a rolling
// window and reports a lockout once maxAttempts is reached.
type RedisLoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

func NewRedisLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func key(identifier string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identifier))
}

func (r *RedisLoginLimiter) Locked(ctx context.Context, identifier string) (bool, error) {
	if r.maxAttempts <= 0 {
		return false, nil
	}
	n, err := r.client.Get(ctx, key(identifier)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil // ключа нет, попыток не было
	case err != nil:
		return false, customErrors.WrapInternal(err, "LoginLimiter.Locked")
	default:
		return n >= r.maxAttempts, nil
	}
}

func (r *RedisLoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	k := key(identifier)
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return customErrors.WrapInternal(err, "LoginLimiter.RecordFailure")
	}
	// TTL ставим на первой ошибке: окно не продлевается новыми попытками
	if n == 1 {
		if err := r.client.Expire(ctx, k, safeTTL(r.window)).Err(); err != nil {
			return customErrors.WrapInternal(err, "LoginLimiter.RecordFailure")
		}
	}
	return nil
}

func (r *RedisLoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, key(identifier)).Err(); err != nil {
		return customErrors.WrapInternal(err, "LoginLimiter.Reset")
	}
	return nil
}

func (r *RedisLoginLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func safeTTL(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Hour
	}
	return window
}
