package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"casaverde/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedChannelManager decorates a ChannelManager with a Redis cache over
// availability windows, so repeat queries for an already-fetched range do
// not hit the channel API. Writes (bookings, status pushes) pass through
// untouched and invalidate nothing: the cache TTL bounds staleness.
type CachedChannelManager struct {
	ChannelManager
	cache  *redis.Client
	logger *zap.Logger
}

// NewCachedChannelManager wraps inner with the availability cache.
func NewCachedChannelManager(inner ChannelManager, cache *redis.Client, logger *zap.Logger) *CachedChannelManager {
	return &CachedChannelManager{ChannelManager: inner, cache: cache, logger: logger}
}

// FetchRoomDates serves the window from cache when present, otherwise
// fetches and stores it. Cache failures degrade to a direct fetch.
func (c *CachedChannelManager) FetchRoomDates(ctx context.Context, roomID, propKey, from, to string) (map[string]RoomDate, error) {
	key := fmt.Sprintf("%s%s:%s:%s", utils.AvailabilityCachePrefix, roomID, from, to)

	if data, err := c.cache.Get(ctx, key).Result(); err == nil {
		var dates map[string]RoomDate
		if err := json.Unmarshal([]byte(data), &dates); err == nil {
			return dates, nil
		}
		// Corrupt entry: drop it and refetch.
		c.cache.Del(ctx, key)
	}

	dates, err := c.ChannelManager.FetchRoomDates(ctx, roomID, propKey, from, to)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(dates); err == nil {
		if err := c.cache.Set(ctx, key, data, utils.AvailabilityCacheTTL).Err(); err != nil {
			c.logger.Warn("failed to cache availability window",
				zap.String("key", key), zap.Error(err))
		}
	}
	return dates, nil
}
