package permissions

import (
	"context"
	"sync"

	"github.com/storefront/storefront/internal/models"
)

type requestCacheKey struct{}

// requestCache memoises effective permissions for the lifetime of one request.
type requestCache struct {
	mu      sync.Mutex
	entries map[string][]models.Permission
}

// WithRequestCache attaches an empty per-request permission cache to ctx.
func WithRequestCache(ctx context.Context) context.Context {
	ctx = ensureContext(ctx)
	if _, ok := ctx.Value(requestCacheKey{}).(*requestCache); ok {
		return ctx
	}
	return context.WithValue(ctx, requestCacheKey{}, &requestCache{entries: make(map[string][]models.Permission)})
}

// InvalidateRequestCache drops cached permissions for the given users, or every entry when no
// user is named. Graph mutations must call this before returning.
func InvalidateRequestCache(ctx context.Context, userIDs ...string) {
	cache := cacheFrom(ctx)
	if cache == nil {
		return
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if len(userIDs) == 0 {
		cache.entries = make(map[string][]models.Permission)
		return
	}
	for _, id := range userIDs {
		delete(cache.entries, id)
	}
}

func cacheFrom(ctx context.Context) *requestCache {
	if ctx == nil {
		return nil
	}
	cache, _ := ctx.Value(requestCacheKey{}).(*requestCache)
	return cache
}

func (c *requestCache) get(userID string) ([]models.Permission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	perms, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	return append([]models.Permission(nil), perms...), true
}

func (c *requestCache) set(userID string, perms []models.Permission) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[userID] = append([]models.Permission(nil), perms...)
}
