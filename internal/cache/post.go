// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// post.go provides a Valkey-backed cache of fully assembled post
// projections keyed by post ID. Valkey failures are returned to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"postcatalog/internal/models"
)

const (
	// postKeyPrefix is the Valkey key prefix for cached posts.
	postKeyPrefix = "post:"

	// PostTTL is how long a post projection stays cached after it is written.
	PostTTL = 10 * time.Minute
)

// PostCache manages post projection caching in Valkey.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostCache creates a post cache backed by the given Valkey client. A
// zero ttl selects PostTTL.
func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	if ttl == 0 {
		ttl = PostTTL
	}
	return &PostCache{client: client, ttl: ttl}
}

// PostKey returns the cache key for a post ID.
func PostKey(id uuid.UUID) string {
	return postKeyPrefix + id.String()
}

// Get retrieves a cached post. A miss is (nil, false, nil); an unreachable
// Valkey is reported as an error. An entry that no longer decodes is
// dropped and reported as a miss.
func (pc *PostCache) Get(ctx context.Context, id uuid.UUID) (*models.Post, bool, error) {
	val, err := pc.client.Get(ctx, PostKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("post cache get: %w", err)
	}

	var p models.Post
	if err := json.Unmarshal(val, &p); err != nil {
		slog.Warn("post cache decode error", "post_id", id, "error", err)
		if err := pc.client.Del(ctx, PostKey(id)).Err(); err != nil {
			return nil, false, fmt.Errorf("post cache drop undecodable entry: %w", err)
		}
		return nil, false, nil
	}
	slog.Debug("post cache hit", "post_id", id)
	return &p, true, nil
}

// Put stores a post projection with the configured TTL. A nil post is
// never cached.
func (pc *PostCache) Put(ctx context.Context, p *models.Post) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("post cache encode: %w", err)
	}
	if err := pc.client.Set(ctx, PostKey(p.ID), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("post cache set: %w", err)
	}
	return nil
}

// Invalidate removes a single post from the cache.
func (pc *PostCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := pc.client.Del(ctx, PostKey(id)).Err(); err != nil {
		return fmt.Errorf("post cache invalidate: %w", err)
	}
	slog.Debug("post cache invalidated", "post_id", id)
	return nil
}

// InvalidateAll removes every cached post by scanning for the prefix and
// returns the number of keys deleted.
func (pc *PostCache) InvalidateAll(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, postKeyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("post cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("post cache delete: %w", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("post cache fully cleared", "deleted", deleted)
	}
	return deleted, nil
}
