package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

// ErrCacheMiss is returned when no cached value exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// ChannelCacheRepository caches channel subscription counts in Redis.
type ChannelCacheRepository struct {
	client *redis.Client
	exp    time.Duration
}

// NewChannelCacheRepository creates a cache whose entries live for expiration.
func NewChannelCacheRepository(client *redis.Client, expiration time.Duration) *ChannelCacheRepository {
	return &ChannelCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func channelCountsKey(channelID uuid.UUID) string {
	return fmt.Sprintf("channel_counts:%s", channelID)
}

// GetCounts returns the cached counts for channelID or ErrCacheMiss.
func (r *ChannelCacheRepository) GetCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error) {
	key := channelCountsKey(channelID)

	val, err := r.client.Get(ctx, key).Bytes()
	logger.Log.Infow(
		"key", key,
		"result", string(val),
		"error", err,
	)
	if errors.Is(err, redis.Nil) {
		return models.ChannelCounts{}, ErrCacheMiss
	}
	if err != nil {
		return models.ChannelCounts{}, err
	}

	var counts models.ChannelCounts
	if err := json.Unmarshal(val, &counts); err != nil {
		return models.ChannelCounts{}, err
	}
	return counts, nil
}

// SetCounts caches counts for channelID with the repository expiration.
func (r *ChannelCacheRepository) SetCounts(ctx context.Context, channelID uuid.UUID, counts models.ChannelCounts) error {
	key := channelCountsKey(channelID)

	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	err = r.client.Set(ctx, key, data, r.exp).Err()

	logger.Log.Infow(
		"key", key,
		"value", string(data),
		"error", err,
	)
	return err
}

// Invalidate drops the cached counts of every given channel.
func (r *ChannelCacheRepository) Invalidate(ctx context.Context, channelIDs ...uuid.UUID) error {
	if len(channelIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		keys = append(keys, channelCountsKey(id))
	}

	err := r.client.Del(ctx, keys...).Err()
	logger.Log.Infow(
		"keys", keys,
		"result", "deleted",
		"error", err,
	)
	return err
}
