package service

import (
	"context"
	"strings"
	"time"

	"github.com/storelane/api/internal/constants"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
	"github.com/storelane/api/pkg/redis"
)

// LoginThrottle counts failed login attempts per identifier in Redis within
// a sliding window. When Redis is disabled the throttle never blocks.
type LoginThrottle struct {
	cache  redis.Client
	max    int64
	window time.Duration
}

func NewLoginThrottle(cache redis.Client, max int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		cache:  cache,
		max:    int64(max),
		window: window,
	}
}

func (t *LoginThrottle) key(identifier string) string {
	return constants.CacheKeyLoginAttempts + strings.ToLower(identifier)
}

// IsBlocked reports whether the identifier has exceeded the failure budget.
// Redis errors fail open: a degraded cache must not lock everyone out.
func (t *LoginThrottle) IsBlocked(ctx context.Context, identifier string) bool {
	if !t.cache.IsEnabled() || t.max <= 0 {
		return false
	}

	count, err := t.cache.Count(ctx, t.key(identifier))
	if err != nil {
		logger.WarnWithContext(ctx, "Failed to read login attempt counter").
			Err(err).
			Log()
		return false
	}

	return count >= t.max
}

func (t *LoginThrottle) RegisterFailure(ctx context.Context, identifier string) {
	if !t.cache.IsEnabled() || t.max <= 0 {
		return
	}

	ctx = ctxutil.WithOperation(ctx, "service", "RegisterLoginFailure")
	if _, err := t.cache.IncrementWithTTL(ctx, t.key(identifier), t.window); err != nil {
		logger.WarnWithContext(ctx, "Failed to record login failure").
			Err(err).
			Log()
	}
}

func (t *LoginThrottle) Reset(ctx context.Context, identifier string) {
	if !t.cache.IsEnabled() {
		return
	}

	if err := t.cache.Delete(ctx, t.key(identifier)); err != nil {
		logger.WarnWithContext(ctx, "Failed to reset login attempt counter").
			Err(err).
			Log()
	}
}
