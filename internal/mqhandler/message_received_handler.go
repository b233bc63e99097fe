package mqhandler

import (
	"context"
	"encoding/json"

	mqcontracts "triagebot/contracts/mq"
	"triagebot/internal/dedup"
	"triagebot/internal/model"
	"triagebot/internal/service"
	"triagebot/pkg/logger"
	"triagebot/pkg/util"

	"go.uber.org/zap"
)

const (
	handlerName = "message_received"
	// 默认最大重试次数
	defaultMaxRetries = 5
)

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg model.InboundMessage, mode model.Mode) (service.Outcome, error)
}

type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, errorType, originalError string) error
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type MessageReceivedHandler struct {
	processor  MessageProcessor
	dlq        DeadLetterPublisher
	retries    RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

// NewMessageReceivedHandler dlq 和 retries 都可以为 nil：
// 没有 dlq 时不可重试的消息直接丢弃，没有 retries 时可重试错误无限重新入队
func NewMessageReceivedHandler(
	processor MessageProcessor,
	dlq DeadLetterPublisher,
	retries RetryCounter,
	maxRetries int64,
	logger *zap.Logger,
) *MessageReceivedHandler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageReceivedHandler{
		processor:  processor,
		dlq:        dlq,
		retries:    retries,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle 处理一条 message.received 事件。
// 返回 error 仅表示可重试且未超过重试上限，consumer 会 nack 重新入队。
func (h *MessageReceivedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.MessageReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		log.Error("Failed to unmarshal message received payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.deadLetter(ctx, log, raw, "json_decode_error", err)
		return nil
	}

	msg := p.ToInboundMessage()
	retryKey := util.FormatRetryKey(handlerName, dedup.Key(msg))

	out, err := h.processor.ProcessMessage(ctx, msg, p.Mode())
	if err != nil {
		isRetryable, errType := util.IsRetryableError(err)
		log.Error("Failed to process message",
			zap.String("source_id", p.SourceID),
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Error(err),
		)
		if h.shouldRetry(ctx, log, retryKey, isRetryable) {
			return err
		}
		h.deadLetter(ctx, log, raw, errType, err)
		return nil
	}

	if h.retries != nil {
		if err := h.retries.Reset(ctx, retryKey); err != nil {
			log.Warn("Failed to reset retry counter", zap.String("retry_key", retryKey), zap.Error(err))
		}
	}

	if out.Skipped {
		return nil
	}
	log.Debug("message.received event handled",
		zap.String("source_id", p.SourceID),
		zap.String("channel", p.Channel),
		zap.String("category", string(out.Classification.Category)),
		zap.Int64("record_id", out.RecordID),
	)
	return nil
}

func (h *MessageReceivedHandler) shouldRetry(ctx context.Context, log *zap.Logger, retryKey string, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	if h.retries == nil {
		return true
	}
	count, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		// 计数失败时保守地重新入队
		log.Warn("Failed to increment retry counter", zap.String("retry_key", retryKey), zap.Error(err))
		return true
	}
	if !util.ShouldRetry(count, h.maxRetries, true) {
		log.Warn("Max retries exceeded, sending to DLQ",
			zap.String("retry_key", retryKey),
			zap.Int64("retry_count", count),
		)
		return false
	}
	return true
}

func (h *MessageReceivedHandler) deadLetter(ctx context.Context, log *zap.Logger, raw []byte, errType string, cause error) {
	if h.dlq == nil {
		log.Warn("No DLQ configured, dropping message", zap.String("error_type", errType))
		return
	}
	if err := h.dlq.PublishToDLQ(ctx, mqcontracts.RoutingKeyMessageReceived, raw, errType, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ", zap.String("error_type", errType), zap.Error(err))
	}
}
