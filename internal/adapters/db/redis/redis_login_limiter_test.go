package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*RedisLoginLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redisv9.NewClient(&redisv9.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLoginLimiter(client, max, window), mr
}

func TestRedisLoginLimiter_LocksAfterMaxAttempts(t *testing.T) {
	l, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, l.RecordFailure(ctx, "ana"))
	}
	locked, err := l.Locked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, l.RecordFailure(ctx, "ANA "))
	locked, err = l.Locked(ctx, "ana")
	require.NoError(t, err)
	require.True(t, locked, "identifier must be normalized")

	locked, err = l.Locked(ctx, "bob")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestRedisLoginLimiter_WindowExpires(t *testing.T) {
	l, mr := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "ana"))
	locked, _ := l.Locked(ctx, "ana")
	require.True(t, locked)

	mr.FastForward(2 * time.Minute)

	locked, err := l.Locked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestRedisLoginLimiter_Reset(t *testing.T) {
	l, _ := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "ana"))
	require.NoError(t, l.Reset(ctx, "ana"))

	locked, err := l.Locked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestRedisLoginLimiter_Disabled(t *testing.T) {
	l, _ := newLimiter(t, 0, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "ana"))
	locked, err := l.Locked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestRedisLoginLimiter_Unavailable(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:       "127.0.0.1:1",
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLoginLimiter(client, 3, time.Minute)

	_, err := l.Locked(context.Background(), "ana")
	require.True(t, authErrors.IsInternal(err))
	require.True(t, authErrors.IsInternal(l.RecordFailure(context.Background(), "ana")))
}
