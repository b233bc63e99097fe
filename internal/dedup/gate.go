package dedup

import (
	"context"

	"triagebot/pkg/util"
)

// Gate 决定一条消息是否第一次出现。Acquire 返回 true 表示应继续处理。
type Gate interface {
	Acquire(ctx context.Context, key string) bool
}

// Releaser 处理失败时撤销 Acquire，让同一条消息可以重新处理
type Releaser interface {
	Release(ctx context.Context, key string)
}

// CacheGate 进程内 FIFO 缓存
type CacheGate struct {
	cache *Cache
}

func NewCacheGate(cache *Cache) *CacheGate {
	return &CacheGate{cache: cache}
}

func (g *CacheGate) Acquire(_ context.Context, key string) bool {
	return !g.cache.CheckAndRecord(key)
}

func (g *CacheGate) Release(_ context.Context, key string) {
	g.cache.Forget(key)
}

// RedisGate 基于 SETNX，Redis 不可用时放行
type RedisGate struct {
	deduper *util.Deduper
	scope   string
}

func NewRedisGate(deduper *util.Deduper, scope string) *RedisGate {
	if scope == "" {
		scope = "message"
	}
	return &RedisGate{deduper: deduper, scope: scope}
}

func (g *RedisGate) Acquire(ctx context.Context, key string) bool {
	return g.deduper.AcquireOnce(ctx, g.scope, key)
}

func (g *RedisGate) Release(ctx context.Context, key string) {
	g.deduper.Release(ctx, g.scope, key)
}
