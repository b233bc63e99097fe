package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"triagebot/pkg/circuitbreaker"
	"triagebot/pkg/metrics"
)

// Summarizer 生成正文摘要，maxLength 为摘要长度上限（词数）
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

const summaryPrompt = "Summarize the following message in at most %d words. Reply with the summary only, no preamble."

// OpenAISummarizer 走 OpenAI 兼容接口，外面包一层熔断
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewOpenAISummarizer(apiKey, baseURL, model string, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *OpenAISummarizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}
	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
		breaker: breaker,
		logger:  logger,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	start := time.Now()
	var summary string

	err := s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(summaryPrompt, maxLength)},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
			Temperature: 0,
			MaxTokens:   maxLength * 2,
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response choices")
		}
		summary = strings.TrimSpace(resp.Choices[0].Message.Content)
		if summary == "" {
			return errors.New("empty summary")
		}
		return nil
	})

	status := "success"
	if err != nil {
		status = "failed"
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			status = "circuit_open"
		}
	}
	metrics.RecordSummarizerLatency(status, time.Since(start))

	if err != nil {
		return "", err
	}
	return summary, nil
}

// SummaryMaxLength 摘要长度：正文长度的一半，限制在 [10, 100]
func SummaryMaxLength(body string) int {
	n := len([]rune(body)) / 2
	if n > 100 {
		n = 100
	}
	if n < 10 {
		n = 10
	}
	return n
}
