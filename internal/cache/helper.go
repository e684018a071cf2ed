package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"captionboard/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ProfileKeyPrefix = "profile:%s"
)

const (
	ProfileTTL = 5 * time.Minute
)

// ProfileKey is the cache key for a profile.
func ProfileKey(userID uuid.UUID) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch (which must populate dest)
// and stores the result with ttl. Redis failures fall back to fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		observability.FromContext(ctx).Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		observability.FromContext(ctx).Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Invalidate removes key from Redis, if configured.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateProfile drops the cached profile for userID.
func InvalidateProfile(ctx context.Context, userID uuid.UUID) {
	Invalidate(ctx, ProfileKey(userID))
}
