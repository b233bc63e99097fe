package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper logger 可以为 nil
func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce 对 scope + key 做 SETNX。
// 第一次见到返回 true，重复返回 false。
func (d *Deduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	dedupKey := FormatDedupKey(scope, key)

	ok, err := d.rdb.SetNX(ctx, dedupKey, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("scope", scope),
			zap.String("dedup_key", dedupKey),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("scope", scope),
			zap.String("dedup_key", dedupKey),
		)
	}
	return ok
}

// Release 删除去重 key，失败只记日志
func (d *Deduper) Release(ctx context.Context, scope, key string) {
	dedupKey := FormatDedupKey(scope, key)
	if err := d.rdb.Del(ctx, dedupKey).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("dedup_key", dedupKey),
			zap.Error(err),
		)
	}
}

func FormatDedupKey(scope, key string) string {
	return fmt.Sprintf("dedup:%s:%s", scope, key)
}
