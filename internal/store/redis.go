package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mapchat.app/server/internal/model"
)

// redisRepoCache shares the repository cache across instances. Enabled when
// REDIS_URL is set.
type redisRepoCache struct {
	client *redis.Client
}

func NewRedisRepoCache(ctx context.Context, redisURL string) (RepoCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &redisRepoCache{client: client}, nil
}

func (c *redisRepoCache) Get(ctx context.Context, sessionID string, provider model.Provider) ([]model.Repository, bool, error) {
	raw, err := c.client.Get(ctx, repoCacheKey(sessionID, provider)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading repo cache: %w", err)
	}

	var repos []model.Repository
	if err := json.Unmarshal(raw, &repos); err != nil {
		return nil, false, fmt.Errorf("decoding repo cache: %w", err)
	}
	return repos, true, nil
}

func (c *redisRepoCache) Set(ctx context.Context, sessionID string, provider model.Provider, repos []model.Repository, ttl time.Duration) error {
	raw, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("encoding repo cache: %w", err)
	}

	if err := c.client.Set(ctx, repoCacheKey(sessionID, provider), raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing repo cache: %w", err)
	}
	return nil
}

func (c *redisRepoCache) Delete(ctx context.Context, sessionID string, provider model.Provider) error {
	if err := c.client.Del(ctx, repoCacheKey(sessionID, provider)).Err(); err != nil {
		return fmt.Errorf("deleting repo cache: %w", err)
	}
	return nil
}
