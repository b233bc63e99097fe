package main

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"triagebot/internal/config"
	"triagebot/internal/dedup"
)

func TestBuildGate(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		cfg := config.Default()
		a := &app{cfg: &cfg, logger: zap.New(core)}

		gate, err := a.buildGate()
		require.NoError(t, err)
		assert.IsType(t, &dedup.CacheGate{}, gate)
		assert.Zero(t, logs.Len())
	})

	t.Run("redis backend warns that capacity is ignored", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		cfg := config.Default()
		cfg.Dedup.Backend = config.DedupRedis
		cfg.Dedup.TTL = time.Hour
		rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
		t.Cleanup(func() { _ = rdb.Close() })
		a := &app{cfg: &cfg, logger: zap.New(core), rdb: rdb}

		gate, err := a.buildGate()
		require.NoError(t, err)
		assert.IsType(t, &dedup.RedisGate{}, gate)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "ignores dedup.capacity")
		assert.Equal(t, int64(50), entries[0].ContextMap()["capacity"])
	})
}
