package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/mealapi"
)

// Cache key prefixes.
const (
	UsersCachePrefix = "mealdesk-users-"
	usersKey         = "all"
)

// UsersCache caches the user list of the remote API.
type UsersCache struct {
	cache *PrefixedCache[[]mealapi.User]
	ttl   time.Duration
}

// NewUsersCache creates a users cache backed by the configured store.
func NewUsersCache(cfg *config.CacheConfig) *UsersCache {
	ttl := cfg.UsersTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UsersCache{
		cache: NewPrefixedCache[[]mealapi.User](newCacheInstanceByType(cfg), UsersCachePrefix),
		ttl:   ttl,
	}
}

// Get returns the cached user list. A miss or a broken entry reports false.
func (u *UsersCache) Get(ctx context.Context) ([]mealapi.User, bool) {
	users, err := u.cache.Get(ctx, usersKey)
	if err != nil {
		return nil, false
	}
	return users, true
}

// Set stores the user list for the configured TTL.
func (u *UsersCache) Set(ctx context.Context, users []mealapi.User) {
	if err := u.cache.Set(ctx, usersKey, users, store.WithExpiration(u.ttl)); err != nil {
		log.Warn("failed to cache users", "error", err)
	}
}

// Clear drops the cached user list.
func (u *UsersCache) Clear(ctx context.Context) error {
	return u.cache.Delete(ctx, usersKey)
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
	CacheType string `json:"cacheType"`
}

// GetStats returns the hit and miss counters of the cache.
func (u *UsersCache) GetStats() *Stats {
	return &Stats{
		Stats:     u.cache.GetStats(),
		CacheName: "users",
		CacheType: u.cache.GetType(),
	}
}
