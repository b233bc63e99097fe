package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"triagebot/internal/model"
	"triagebot/pkg/logger"
	"triagebot/pkg/metrics"
	"triagebot/pkg/trace"
)

const (
	DefaultChannelDigestSchedule = "0 0 * * *"
	DefaultChannelDigestCapacity = 1000

	NoChannelMessagesText   = "No messages to summarize for today."
	ChannelDigestFailedText = "⚠️ Could not generate summary."

	channelDigestWindow    = 24 * time.Hour
	channelDigestMaxLength = 300
)

type ChannelDigestOptions struct {
	Schedule string
	Target   string
	// 缓冲的消息条数上限，满了丢最旧的
	Capacity int
	// 送进摘要器的最大字符数
	InputCap int
}

type channelEntry struct {
	sender string
	text   string
	at     time.Time
}

// ChannelDigest 收集一天内处理过的消息，按调度生成一份摘要发到频道。
// 缓冲只在内存里，进程重启会丢。
type ChannelDigest struct {
	summarizer Summarizer
	poster     DigestPoster
	target     string
	schedule   cron.Schedule
	capacity   int
	inputCap   int
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	entries []channelEntry
}

// NewChannelDigest summarizer 可以为 nil，此时摘要就是消息原文列表
func NewChannelDigest(summarizer Summarizer, poster DigestPoster, opts ChannelDigestOptions, logger *zap.Logger) (*ChannelDigest, error) {
	if poster == nil {
		return nil, errors.New("channel digest requires a poster")
	}
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultChannelDigestSchedule
	}
	schedule, err := parseSchedule(spec, time.Now())
	if err != nil {
		return nil, fmt.Errorf("channel digest: %w", err)
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultChannelDigestCapacity
	}
	if opts.InputCap <= 0 {
		opts.InputCap = DefaultSummaryInputCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelDigest{
		summarizer: summarizer,
		poster:     poster,
		target:     opts.Target,
		schedule:   schedule,
		capacity:   opts.Capacity,
		inputCap:   opts.InputCap,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Record 实现 MessageRecorder，正文为空时用标题
func (d *ChannelDigest) Record(msg model.InboundMessage) {
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		text = strings.TrimSpace(msg.Subject)
	}
	if text == "" {
		return
	}
	at := msg.ReceivedAt
	if at.IsZero() {
		at = d.now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, channelEntry{sender: msg.Sender, text: text, at: at})
	if over := len(d.entries) - d.capacity; over > 0 {
		d.entries = append(d.entries[:0:0], d.entries[over:]...)
	}
}

// Pending 当前缓冲的消息数
func (d *ChannelDigest) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Generate 汇总过去 24 小时的消息并发到目标频道，缓冲随之清空。
// 摘要失败时用占位文本，发送失败返回错误和已生成的文本。
func (d *ChannelDigest) Generate(ctx context.Context) (string, error) {
	log := logger.WithTrace(ctx, d.logger)
	cutoff := d.now().Add(-channelDigestWindow)

	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.at.Before(cutoff) {
			continue
		}
		sender := e.sender
		if sender == "" {
			sender = "unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sender, e.text))
	}

	summary := NoChannelMessagesText
	status := "empty"
	if len(lines) > 0 {
		summary = d.summarize(ctx, log, lines)
		status = "posted"
	}
	text := "📢 *Daily Digest Summary*\n" + summary

	if err := d.poster.PostDigest(ctx, d.target, text); err != nil {
		metrics.IncrementChannelDigest("failed")
		log.Error("Failed to post channel digest", zap.String("target", d.target), zap.Error(err))
		return text, fmt.Errorf("post channel digest: %w", err)
	}
	metrics.IncrementChannelDigest(status)
	log.Info("Channel digest posted",
		zap.String("target", d.target),
		zap.Int("messages", len(lines)),
	)
	return text, nil
}

func (d *ChannelDigest) summarize(ctx context.Context, log *zap.Logger, lines []string) string {
	joined := strings.Join(lines, "\n")
	if d.summarizer == nil {
		return joined
	}
	summary, err := d.summarizer.Summarize(ctx, truncateRunes(joined, d.inputCap), channelDigestMaxLength)
	if err != nil {
		log.Warn("Channel digest summarization failed", zap.Error(err))
		metrics.IncrementSummaryFallback()
		return ChannelDigestFailedText
	}
	return summary
}

// Run 阻塞直到 ctx 取消
func (d *ChannelDigest) Run(ctx context.Context) error {
	return runSchedule(ctx, "channel_digest", d.schedule, d.now, d.logger, d.generateOnce)
}

func (d *ChannelDigest) generateOnce(ctx context.Context) {
	digestCtx := trace.WithContext(context.WithoutCancel(ctx), trace.GenerateTraceID())
	if _, err := d.Generate(digestCtx); err != nil {
		d.logger.Error("Channel digest failed", zap.Error(err))
	}
}
