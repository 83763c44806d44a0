package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// DiscoveryCache implements domain.DiscoveryCache. Grouped discovery results
// are stored as JSON blobs under a short TTL so bursts of odds requests from
// the dashboard don't each hit the exchange.
type DiscoveryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDiscoveryCache creates a DiscoveryCache with the given entry TTL.
func NewDiscoveryCache(c *Client, ttl time.Duration) *DiscoveryCache {
	return &DiscoveryCache{rdb: c.Underlying(), ttl: ttl}
}

func discoveryKey(key string) string {
	return "discovery:" + key
}

// Get returns the cached events for key. The second return is false on a
// cache miss.
func (dc *DiscoveryCache) Get(ctx context.Context, key string) ([]domain.Event, bool, error) {
	data, err := dc.rdb.Get(ctx, discoveryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get discovery %s: %w", key, err)
	}

	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		// A corrupt entry behaves as a miss; it will be overwritten shortly.
		return nil, false, nil
	}
	return events, true, nil
}

// Set stores the events for key under the configured TTL.
func (dc *DiscoveryCache) Set(ctx context.Context, key string, events []domain.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("redis: marshal discovery %s: %w", key, err)
	}
	if err := dc.rdb.Set(ctx, discoveryKey(key), data, dc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set discovery %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.DiscoveryCache = (*DiscoveryCache)(nil)
