package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"triagebot/internal/classifier"
	"triagebot/internal/model"
	"triagebot/pkg/circuitbreaker"
	"triagebot/pkg/config"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	DedupMemory = "memory"
	DedupRedis  = "redis"
)

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type SummarizerConfig struct {
	Enabled        bool                  `yaml:"enabled"`
	APIKey         string                `yaml:"api_key"`
	BaseURL        string                `yaml:"base_url"`
	Model          string                `yaml:"model"`
	Timeout        time.Duration         `yaml:"timeout"`
	CircuitBreaker circuitbreaker.Config `yaml:"circuit_breaker"`
}

type DedupConfig struct {
	Capacity int    `yaml:"capacity"`
	Backend  string `yaml:"backend"`
	// 只对 redis 后端生效
	TTL time.Duration `yaml:"ttl"`
}

type TriageConfig struct {
	Threshold       float64             `yaml:"threshold"`
	Intents         []model.Intent      `yaml:"catalog"`
	Fallback        model.SuggestionSet `yaml:"fallback"`
	Keywords        classifier.Rules    `yaml:"keywords"`
	SummaryInputCap int                 `yaml:"summary_input_cap"`
	// 聊天应用的问候语自动回复和常见问题
	Greetings map[string]string `yaml:"greetings"`
	FAQ       []model.FAQEntry  `yaml:"faq"`
}

type ReminderConfig struct {
	Schedule   string `yaml:"schedule"`
	Target     string `yaml:"target"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// ChannelDigestConfig 每日频道摘要
type ChannelDigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Target   string `yaml:"target"`
	Capacity int    `yaml:"capacity"`
}

type Config struct {
	Store      StoreConfig         `yaml:"store"`
	DB         config.DBConfig     `yaml:"db"`
	SQLite     config.SQLiteConfig `yaml:"sqlite"`
	MQ         config.MQConfig     `yaml:"mq"`
	Redis      config.RedisConfig  `yaml:"redis"`
	JWT        config.JWTConfig    `yaml:"jwt"`
	Server     config.ServerConfig `yaml:"server"`
	Summarizer SummarizerConfig    `yaml:"summarizer"`
	Dedup      DedupConfig         `yaml:"dedup"`
	Triage     TriageConfig        `yaml:"triage"`
	Reminder   ReminderConfig      `yaml:"reminder"`

	ChannelDigest ChannelDigestConfig `yaml:"channel_digest"`
}

// Default 返回不依赖任何配置文件即可运行的默认值
func Default() Config {
	return Config{
		Store:  StoreConfig{Driver: StoreSQLite},
		SQLite: config.SQLiteConfig{Path: "triage.db", BusyTimeout: 5 * time.Second},
		DB:     config.DBConfig{Host: "localhost", Port: 5432, SSLMode: "disable", MaxConns: 10},
		MQ:     config.MQConfig{Queue: "message.received.q", Prefetch: 10, MaxRetries: 5},
		JWT:    config.JWTConfig{TTL: 24 * time.Hour},
		Server: config.ServerConfig{Port: ":8080", LogLevel: "info"},
		Summarizer: SummarizerConfig{
			Model:          "gpt-4o-mini",
			Timeout:        15 * time.Second,
			CircuitBreaker: circuitbreaker.DefaultConfig(),
		},
		Dedup: DedupConfig{Capacity: 50, Backend: DedupMemory, TTL: 24 * time.Hour},
		Triage: TriageConfig{
			Threshold:       0.3,
			Intents:         model.DefaultIntents(),
			Fallback:        model.DefaultFallbackReplies(),
			Keywords:        classifier.DefaultRules(),
			SummaryInputCap: 1000,
			Greetings:       model.DefaultGreetings(),
			FAQ:             model.DefaultFAQ(),
		},
		Reminder:      ReminderConfig{Schedule: "0 9 * * *"},
		ChannelDigest: ChannelDigestConfig{Schedule: "0 0 * * *", Capacity: 1000},
	}
}

// Load 读取 dir 下的 base.yaml 与 <env>.yaml，再用环境变量覆盖
func Load(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	// yaml 解码 map 时会合并进已有的值，这里清空，让配置整体替换默认问候语
	cfg.Triage.Greetings = nil
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}
	if cfg.Triage.Greetings == nil {
		cfg.Triage.Greetings = model.DefaultGreetings()
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideSQLiteFromEnv(&cfg.SQLite)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Summarizer.APIKey = key
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}

	// 未解析的 ${VAR} 不能当作密钥使用
	for _, secret := range []*string{&cfg.JWT.Secret, &cfg.Summarizer.APIKey, &cfg.DB.Password, &cfg.Redis.Addr, &cfg.MQ.URL} {
		if strings.HasPrefix(*secret, "${") {
			*secret = ""
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Dedup.Capacity <= 0 {
		return fmt.Errorf("dedup.capacity must be positive, got %d", c.Dedup.Capacity)
	}
	if c.Triage.Threshold < 0 || c.Triage.Threshold > 1 {
		return fmt.Errorf("triage.threshold must be within [0,1], got %v", c.Triage.Threshold)
	}
	if len(c.Triage.Intents) == 0 {
		return errors.New("triage.catalog must not be empty")
	}
	if _, err := model.NewIntentCatalog(c.Triage.Intents); err != nil {
		return fmt.Errorf("triage.catalog: %w", err)
	}
	if len(c.Triage.Fallback) == 0 || len(c.Triage.Fallback) > model.MaxSuggestions {
		return fmt.Errorf("triage.fallback must have 1 to %d replies, got %d", model.MaxSuggestions, len(c.Triage.Fallback))
	}
	for phrase, reply := range c.Triage.Greetings {
		if strings.TrimSpace(phrase) == "" || reply == "" {
			return errors.New("triage.greetings entries need a phrase and a reply")
		}
	}
	for i, entry := range c.Triage.FAQ {
		if strings.TrimSpace(entry.Question) == "" || entry.Answer == "" {
			return fmt.Errorf("triage.faq entry %d needs both question and answer", i)
		}
	}
	if c.ChannelDigest.Enabled && c.ChannelDigest.Capacity <= 0 {
		return fmt.Errorf("channel_digest.capacity must be positive, got %d", c.ChannelDigest.Capacity)
	}
	switch c.Store.Driver {
	case StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Dedup.Backend {
	case DedupMemory:
	case DedupRedis:
		if c.Redis.Addr == "" {
			return errors.New("dedup.backend redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown dedup.backend %q", c.Dedup.Backend)
	}
	if c.MQ.Enabled && c.MQ.URL == "" {
		return errors.New("mq.enabled requires mq.url")
	}
	if c.Summarizer.Enabled && c.Summarizer.APIKey == "" {
		return errors.New("summarizer.enabled requires summarizer.api_key")
	}
	return nil
}

// IntentCatalog 由配置构造只读意图表
func (c *Config) IntentCatalog() (*model.IntentCatalog, error) {
	return model.NewIntentCatalog(c.Triage.Intents)
}
