package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCache 进程内缓存实现
type goCache struct {
	c *gocache.Cache
}

// NewGoCache 创建基于 go-cache 的进程内缓存
func NewGoCache(defaultExpiration, cleanupInterval time.Duration) Cache {
	if defaultExpiration <= 0 {
		defaultExpiration = gocache.NoExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &goCache{c: gocache.New(defaultExpiration, cleanupInterval)}
}

func (g *goCache) Get(ctx context.Context, key string) (string, bool) {
	v, ok := g.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (g *goCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	g.c.Set(key, value, expiration)
	return nil
}

func (g *goCache) Add(ctx context.Context, key, value string, expiration time.Duration) bool {
	// go-cache 的 Add 在键已存在且未过期时返回错误
	return g.c.Add(key, value, expiration) == nil
}

func (g *goCache) Delete(ctx context.Context, key string) error {
	g.c.Delete(key)
	return nil
}

func (g *goCache) Exists(ctx context.Context, key string) bool {
	_, ok := g.c.Get(key)
	return ok
}

func (g *goCache) Close() error { return nil }
