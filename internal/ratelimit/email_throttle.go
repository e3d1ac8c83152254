package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyEmail = "email:%s:%s"

// EmailThrottle limits how often invitation and password emails reach one address.
type EmailThrottle struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

func NewRedisClient(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func NewEmailThrottle(cfg config.Config, client *redis.Client, log *zap.Logger) (*EmailThrottle, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	if limitCfg.EmailRate <= 0 || limitCfg.EmailBurst <= 0 {
		return nil, errors.New("email rate limit must be positive")
	}

	return &EmailThrottle{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.email"),
		rate:   limitCfg.EmailRate,
		burst:  limitCfg.EmailBurst,
	}, nil
}

func (t *EmailThrottle) Enabled() bool {
	return t != nil && t.bucket != nil
}

// Allow reports whether another email of kind may go to recipient and, if
// not, how long until a token is available. Redis failures are logged and
// the email is allowed.
func (t *EmailThrottle) Allow(ctx context.Context, kind, recipient string) (bool, time.Duration) {
	if !t.Enabled() {
		return true, 0
	}

	key := fmt.Sprintf(keyEmail, kind, strings.ToLower(strings.TrimSpace(recipient)))
	res, err := t.bucket.Allow(ctx, key, t.rate, t.burst)
	if err != nil {
		t.log.Warn("email throttle unavailable", zap.String("kind", kind), zap.Error(err))
		return true, 0
	}
	if !res.Allowed {
		t.log.Debug("email bucket empty",
			zap.String("kind", kind),
			zap.Int("remaining", res.Remaining),
			zap.Duration("retry_after", res.RetryAfter),
		)
	}
	return res.Allowed, res.RetryAfter
}
