// File: internal/platform/cached.go
package platform

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

const (
	windowListKey = "window_list"
	activeAppKey  = "active_app"
)

// CachedWindowProvider memoizes window enumeration for a short TTL. One
// sampling cycle touches the window list several times (regions, digest,
// pagination cache refill); this keeps that to a single OS round trip.
// Errors are never cached.
type CachedWindowProvider struct {
	inner WindowProvider
	cache *gocache.Cache
}

// NewCachedWindowProvider wraps inner with a ttl-bounded cache.
func NewCachedWindowProvider(inner WindowProvider, ttl time.Duration) *CachedWindowProvider {
	return &CachedWindowProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ListWindows implements WindowProvider.
func (c *CachedWindowProvider) ListWindows(ctx context.Context) ([]schemas.WindowInfo, error) {
	if v, ok := c.cache.Get(windowListKey); ok {
		cached := v.([]schemas.WindowInfo)
		return append([]schemas.WindowInfo(nil), cached...), nil
	}

	windows, err := c.inner.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(windowListKey, append([]schemas.WindowInfo(nil), windows...))
	return windows, nil
}

// ActiveApplication implements WindowProvider.
func (c *CachedWindowProvider) ActiveApplication(ctx context.Context) (string, error) {
	if v, ok := c.cache.Get(activeAppKey); ok {
		return v.(string), nil
	}

	app, err := c.inner.ActiveApplication(ctx)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(activeAppKey, app)
	return app, nil
}

// Invalidate drops the cached entries, forcing the next call through to the
// underlying provider. Used by forced-refresh handling.
func (c *CachedWindowProvider) Invalidate() {
	c.cache.Delete(windowListKey)
	c.cache.Delete(activeAppKey)
}
