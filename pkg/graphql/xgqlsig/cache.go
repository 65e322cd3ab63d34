package xgqlsig

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// sigCache 有界 LRU，条目在读取时按 TTL 惰性过期，不启动后台 goroutine。
type sigCache struct {
	lru *lru.Cache[string, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	sig       QuerySignature
	expiresAt time.Time // 零值表示不过期
}

func newCache(size int, ttl time.Duration) *sigCache {
	// size > 0 由调用方保证，lru.New 只在 size <= 0 时返回错误
	l, _ := lru.New[string, cacheEntry](size)
	return &sigCache{lru: l, ttl: ttl, now: time.Now}
}

// Get 命中时刷新 LRU 顺序。过期条目被移除并视为未命中。
func (c *sigCache) Get(key string) (QuerySignature, bool) {
	e, ok := c.lru.Get(key)
	return c.live(key, e, ok)
}

// Peek 不改变 LRU 顺序。
func (c *sigCache) Peek(key string) (QuerySignature, bool) {
	e, ok := c.lru.Peek(key)
	return c.live(key, e, ok)
}

func (c *sigCache) live(key string, e cacheEntry, ok bool) (QuerySignature, bool) {
	if !ok {
		return QuerySignature{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return QuerySignature{}, false
	}
	return e.sig, true
}

func (c *sigCache) Add(key string, sig QuerySignature) {
	e := cacheEntry{sig: sig}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.lru.Add(key, e)
}

// Len 包含尚未被读取淘汰的过期条目。
func (c *sigCache) Len() int { return c.lru.Len() }

func (c *sigCache) Purge() { c.lru.Purge() }
