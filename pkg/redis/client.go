package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the minimal Redis surface the service needs. A disabled client
// satisfies it with no-ops so Redis stays optional.
type Client interface {
	Ping(ctx context.Context) error
	IsEnabled() bool
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config holds Redis connection configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	Enabled      bool
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client. When cfg.Enabled is false, a disabled
// client is returned and all operations are no-ops.
func NewClient(cfg Config, logger *zap.Logger) Client {
	if !cfg.Enabled {
		logger.Info("Redis client disabled by configuration")
		return &disabledClient{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	c := &client{rdb: rdb, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		logger.Warn("Redis unreachable at startup, continuing anyway",
			zap.String("address", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
			zap.Error(err),
		)
	} else {
		logger.Info("Connected to Redis",
			zap.String("address", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
			zap.Int("database", cfg.DB),
		)
	}

	return c
}

func (c *client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *client) IsEnabled() bool {
	return true
}

// IncrementWithTTL atomically increments key and sets its TTL on first
// increment. Used for windowed counters (failed login attempts).
func (c *client) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Count returns the current integer value of key, or 0 when the key does
// not exist.
func (c *client) Count(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

func (c *client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *client) Close() error {
	return c.rdb.Close()
}

// disabledClient is returned when Redis is turned off.
type disabledClient struct{}

func (d *disabledClient) Ping(ctx context.Context) error { return nil }
func (d *disabledClient) IsEnabled() bool                { return false }
func (d *disabledClient) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, nil
}
func (d *disabledClient) Count(ctx context.Context, key string) (int64, error) { return 0, nil }
func (d *disabledClient) Delete(ctx context.Context, key string) error         { return nil }
func (d *disabledClient) Close() error                                         { return nil }
