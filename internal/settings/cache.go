package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

const cacheKey = "hospital:appointment_config"

// CachedRepository reads through Redis. Redis failures degrade to the backing
// repository; they never fail a request.
type CachedRepository struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if next == nil {
		panic("settings: backing repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedRepository) Get(ctx context.Context) (*Config, error) {
	if c.redis == nil {
		return c.next.Get(ctx)
	}
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var cfg Config
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr == nil {
			return &cfg, nil
		}
		c.logger.Warn("discarding corrupt cached appointment config")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("appointment config cache read failed", "error", err)
	}

	cfg, err := c.next.Get(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cfg)
	return cfg, nil
}

func (c *CachedRepository) Set(ctx context.Context, limits scheduling.Limits) (*Config, error) {
	cfg, err := c.next.Set(ctx, limits)
	if err != nil {
		return nil, err
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, cacheKey).Err(); err != nil {
			c.logger.Warn("appointment config cache invalidate failed", "error", err)
		}
	}
	return cfg, nil
}

func (c *CachedRepository) store(ctx context.Context, cfg *Config) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("appointment config cache write failed", "error", err)
	}
}
