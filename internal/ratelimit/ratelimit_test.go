package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, bucketTTL(0, 1))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, 20*time.Second, bucketTTL(0.5, 5))
}

func TestResponseCasting(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(3), toInt("3"))
	assert.Equal(t, int64(0), toInt(nil))
	assert.Equal(t, 2.5, toFloat("2.5"))
	assert.Equal(t, 4.0, toFloat(int64(4)))
}

func TestTokenBucketValidation(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	bucket := NewTokenBucket(client)

	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestEmailThrottleDisabledAllowsEverything(t *testing.T) {
	throttle, err := NewEmailThrottle(config.Config{}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, throttle)
	assert.False(t, throttle.Enabled())
	ok, retryAfter := throttle.Allow(context.Background(), "invite", "a@example.test")
	assert.True(t, ok)
	assert.Zero(t, retryAfter)
}

func TestEmailThrottleRejectsBadLimits(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "127.0.0.1:1"}}
	_, err := NewEmailThrottle(cfg, client, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestEmailThrottleFailsOpenWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cfg := config.Config{RateLimit: config.RateLimitConfig{
		Enabled:    true,
		RedisAddr:  "127.0.0.1:1",
		EmailRate:  0.1,
		EmailBurst: 1,
	}}
	throttle, err := NewEmailThrottle(cfg, client, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, throttle.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, _ := throttle.Allow(ctx, "invite", "a@example.test")
	assert.True(t, ok)
}
