package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"household-api/core/constants"
	"household-api/core/logger"
	"household-api/core/utils"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another holder owns the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

type Cache interface {
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
	AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	// AcquireLock sets key if absent and returns the owner token needed to release it.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error

	Client() *redis.Client
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type redisCache struct {
	client *redis.Client
}

// release only deletes the key when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisCache(cfg RedisConfig) (Cache, error) {
	logger.Info("Initializing redis...", "addr", cfg.Addr, "db", cfg.DB)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to ping redis", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, constants.TokenBlacklistPrefix+token).Result()
	if err != nil {
		logger.Error("Cache:IsTokenBlacklisted", err)
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, constants.TokenBlacklistPrefix+token, "1", ttl).Err(); err != nil {
		logger.Error("Cache:AddToTokenBlacklist", err)
		return err
	}
	return nil
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c *redisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := utils.GenerateRandomString(21)
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.Error("Cache:AcquireLock", err, "key", key)
		return "", err
	}
	if !ok {
		return "", ErrLockNotAcquired
	}
	return token, nil
}

func (c *redisCache) ReleaseLock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		logger.Error("Cache:ReleaseLock", err, "key", key)
		return err
	}
	return nil
}

func (c *redisCache) Client() *redis.Client {
	return c.client
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
