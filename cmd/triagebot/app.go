package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"triagebot/internal/classifier"
	"triagebot/internal/config"
	"triagebot/internal/dedup"
	"triagebot/internal/mqhandler"
	"triagebot/internal/repository"
	"triagebot/internal/responder"
	"triagebot/internal/service"
	"triagebot/pkg/circuitbreaker"
	"triagebot/pkg/db"
	"triagebot/pkg/mq"
	redisclient "triagebot/pkg/redis"
	"triagebot/pkg/util"
)

// app 持有一次进程运行所需的全部组件，由 newApp 显式组装
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	repo      repository.TriageRepository
	rdb       *goredis.Client
	publisher *mq.Publisher
	pipeline  *service.Pipeline
	scheduler *service.ReminderScheduler
	digest    *service.ChannelDigest

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	a.closers = append(a.closers, func() { _ = repo.Close() })

	if cfg.Dedup.Backend == config.DedupRedis {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rdb = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init MQ publisher: %w", err)
		}
		a.publisher = publisher
		a.closers = append(a.closers, publisher.Close)
	}

	gate, err := a.buildGate()
	if err != nil {
		a.Close()
		return nil, err
	}

	catalog, err := cfg.IntentCatalog()
	if err != nil {
		a.Close()
		return nil, err
	}
	resp, err := responder.New(catalog, cfg.Triage.Fallback, cfg.Triage.Threshold)
	if err != nil {
		a.Close()
		return nil, err
	}

	chat, err := service.NewChatReplies(cfg.Triage.Greetings, cfg.Triage.FAQ)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := service.PipelineDeps{
		Gate:            gate,
		Classifier:      classifier.New(cfg.Triage.Keywords),
		Responder:       resp,
		Chat:            chat,
		Repo:            repo,
		SummaryInputCap: cfg.Triage.SummaryInputCap,
		Logger:          logger,
	}
	if cfg.Summarizer.Enabled {
		breaker := circuitbreaker.NewCircuitBreaker(cfg.Summarizer.CircuitBreaker)
		deps.Summarizer = service.NewOpenAISummarizer(
			cfg.Summarizer.APIKey,
			cfg.Summarizer.BaseURL,
			cfg.Summarizer.Model,
			cfg.Summarizer.Timeout,
			breaker,
			logger,
		)
	}
	notifier := a.buildNotifier()
	if cfg.ChannelDigest.Enabled {
		a.digest, err = service.NewChannelDigest(deps.Summarizer, notifier, service.ChannelDigestOptions{
			Schedule: cfg.ChannelDigest.Schedule,
			Target:   cfg.ChannelDigest.Target,
			Capacity: cfg.ChannelDigest.Capacity,
			InputCap: cfg.Triage.SummaryInputCap,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Recorder = a.digest
	}
	a.pipeline, err = service.NewPipeline(deps)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.scheduler, err = service.NewReminderScheduler(repo, notifier, service.ReminderOptions{
		Schedule:   cfg.Reminder.Schedule,
		Target:     cfg.Reminder.Target,
		RunOnStart: cfg.Reminder.RunOnStart,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.TriageRepository, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := db.NewConnection(ctx, cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewPostgresTriageRepository(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	default:
		conn, err := db.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewSQLiteTriageRepository(ctx, conn, logger)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return repo, nil
	}
}

func (a *app) buildGate() (dedup.Gate, error) {
	if a.rdb != nil {
		ttl := a.cfg.Dedup.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		// Redis 去重按 TTL 过期，dedup.capacity 不生效
		a.logger.Warn("Redis dedup backend ignores dedup.capacity, duplicates are suppressed for dedup.ttl instead",
			zap.Int("capacity", a.cfg.Dedup.Capacity),
			zap.Duration("ttl", ttl),
		)
		return dedup.NewRedisGate(util.NewDeduper(a.rdb, ttl, a.logger), "message"), nil
	}
	cache, err := dedup.NewCache(a.cfg.Dedup.Capacity)
	if err != nil {
		return nil, err
	}
	return dedup.NewCacheGate(cache), nil
}

// broadcaster 同时投递提醒和每日频道摘要
type broadcaster interface {
	service.Notifier
	service.DigestPoster
}

func (a *app) buildNotifier() broadcaster {
	if a.publisher != nil {
		return service.NewMQNotifier(a.publisher)
	}
	return service.NewLogNotifier(a.logger)
}

// retryCounter 只有配置了 Redis 才启用
func (a *app) retryCounter() mqhandler.RetryCounter {
	if a.rdb == nil {
		return nil
	}
	return util.NewRetryCounter(a.rdb, time.Hour)
}

// Close 按创建的逆序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
