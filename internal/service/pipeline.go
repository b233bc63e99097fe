package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"triagebot/internal/dedup"
	"triagebot/internal/model"
	"triagebot/internal/repository"
	"triagebot/pkg/logger"
	"triagebot/pkg/metrics"
)

const (
	DefaultSummaryInputCap = 1000
	SummaryPlaceholder     = "Summary unavailable."
)

type Classifier interface {
	Classify(subject string) model.Classification
}

type ReplySuggester interface {
	SuggestReplies(body string) model.SuggestionSet
}

// Outcome 单条消息的处理结果。Skipped 为 true 时其余字段为空。
type Outcome struct {
	Message        model.InboundMessage `json:"message"`
	DedupKey       string               `json:"dedup_key"`
	Skipped        bool                 `json:"skipped"`
	Classification model.Classification `json:"classification"`
	Summary        string               `json:"summary,omitempty"`
	Suggestions    model.SuggestionSet  `json:"suggestions,omitempty"`
	RecordID       int64                `json:"record_id,omitempty"`
	Task           string               `json:"task,omitempty"`
	AutoReply      string               `json:"auto_reply,omitempty"`
	FAQReply       string               `json:"faq_reply,omitempty"`
}

// MessageRecorder 收集已处理的消息，供每日频道摘要使用
type MessageRecorder interface {
	Record(msg model.InboundMessage)
}

type PipelineDeps struct {
	Gate       dedup.Gate
	Classifier Classifier
	Responder  ReplySuggester
	// 可选，为 nil 时不生成摘要
	Summarizer Summarizer
	// 为 nil 时使用默认问候语和常见问题
	Chat *ChatReplies
	// 可选
	Recorder MessageRecorder
	// ModeTrackUnanswered 时必须提供
	Repo            repository.TriageRepository
	SummaryInputCap int
	Logger          *zap.Logger
}

// Pipeline 消息分流编排：去重 → 分类 → 问候语/摘要 → 建议回复 → 落库
type Pipeline struct {
	gate       dedup.Gate
	classifier Classifier
	responder  ReplySuggester
	summarizer Summarizer
	chat       *ChatReplies
	recorder   MessageRecorder
	repo       repository.TriageRepository
	inputCap   int
	logger     *zap.Logger
}

func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Gate == nil || deps.Classifier == nil || deps.Responder == nil {
		return nil, errors.New("pipeline requires gate, classifier and responder")
	}
	if deps.SummaryInputCap <= 0 {
		deps.SummaryInputCap = DefaultSummaryInputCap
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Chat == nil {
		deps.Chat = DefaultChatReplies()
	}
	return &Pipeline{
		gate:       deps.Gate,
		classifier: deps.Classifier,
		responder:  deps.Responder,
		summarizer: deps.Summarizer,
		chat:       deps.Chat,
		recorder:   deps.Recorder,
		repo:       deps.Repo,
		inputCap:   deps.SummaryInputCap,
		logger:     deps.Logger,
	}, nil
}

func (p *Pipeline) ProcessMessage(ctx context.Context, msg model.InboundMessage, mode model.Mode) (Outcome, error) {
	log := logger.WithTrace(ctx, p.logger)
	key := dedup.Key(msg)

	if mode == model.ModeTrackUnanswered && p.repo == nil {
		return Outcome{}, errors.New("track_unanswered mode requires a triage repository")
	}

	if !p.gate.Acquire(ctx, key) {
		log.Debug("Skipping duplicate message", zap.String("dedup_key", key))
		metrics.IncrementMessageProcessed("skipped")
		return Outcome{Message: msg, DedupKey: key, Skipped: true}, nil
	}

	out := Outcome{Message: msg, DedupKey: key}
	out.Classification = p.classifier.Classify(msg.Subject)
	metrics.IncrementMessageClassified(string(out.Classification.Category))

	// 问候语直接回复，不再摘要也不查常见问题
	if reply, ok := p.chat.AutoReply(msg.Body); ok {
		out.AutoReply = reply
	} else {
		if p.summarizer != nil {
			out.Summary = p.summarize(ctx, log, msg.Body)
		}
		if answer, ok := p.chat.FAQReply(msg.Body); ok {
			out.FAQReply = answer
		}
	}

	out.Suggestions = p.responder.SuggestReplies(msg.Body)
	if task, ok := DetectTask(msg.Body); ok {
		out.Task = task
	}

	if mode == model.ModeTrackUnanswered {
		id, err := p.repo.CreateRecord(ctx, msg.Sender, msg.Subject, out.Classification.Category)
		if err != nil {
			// 放开去重 key，让重投的消息还能被处理
			if r, ok := p.gate.(dedup.Releaser); ok {
				r.Release(ctx, key)
			}
			metrics.IncrementMessageProcessed("failed")
			return Outcome{}, fmt.Errorf("create triage record: %w", err)
		}
		out.RecordID = id
	}
	if p.recorder != nil {
		p.recorder.Record(msg)
	}

	metrics.IncrementMessageProcessed("processed")
	log.Info("Message triaged",
		zap.String("dedup_key", key),
		zap.String("category", string(out.Classification.Category)),
		zap.Int("priority", out.Classification.Priority),
		zap.Int64("record_id", out.RecordID),
	)
	return out, nil
}

func (p *Pipeline) summarize(ctx context.Context, log *zap.Logger, body string) string {
	text := truncateRunes(body, p.inputCap)
	if strings.TrimSpace(text) == "" {
		return SummaryPlaceholder
	}

	summary, err := p.summarizer.Summarize(ctx, text, SummaryMaxLength(text))
	if err != nil {
		log.Warn("Summarization failed, using placeholder", zap.Error(err))
		metrics.IncrementSummaryFallback()
		return SummaryPlaceholder
	}
	return summary
}

// ProcessBatch 按输入顺序处理，丢弃被去重的结果，按优先级稳定排序。
// 出错时返回已处理部分（同样排序）和错误。
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []model.InboundMessage, mode model.Mode) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(msgs))
	for _, msg := range msgs {
		out, err := p.ProcessMessage(ctx, msg, mode)
		if err != nil {
			SortByPriority(outcomes)
			return outcomes, err
		}
		if out.Skipped {
			continue
		}
		outcomes = append(outcomes, out)
	}
	SortByPriority(outcomes)
	return outcomes, nil
}

// SortByPriority 优先级升序，同优先级保持原顺序
func SortByPriority(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Classification.Priority < outcomes[j].Classification.Priority
	})
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
