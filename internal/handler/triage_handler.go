package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "triagebot/contracts/mq"
	"triagebot/internal/model"
	"triagebot/internal/service"
	"triagebot/pkg/logger"
)

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg model.InboundMessage, mode model.Mode) (service.Outcome, error)
}

type RecordLister interface {
	ListUnreminded(ctx context.Context) ([]model.TriageRecord, error)
}

type Sweeper interface {
	RunSweep(ctx context.Context) ([]model.ReminderPayload, error)
}

type TriageHandler struct {
	processor MessageProcessor
	records   RecordLister
	sweeper   Sweeper
	logger    *zap.Logger
}

func NewTriageHandler(processor MessageProcessor, records RecordLister, sweeper Sweeper, logger *zap.Logger) *TriageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageHandler{
		processor: processor,
		records:   records,
		sweeper:   sweeper,
		logger:    logger,
	}
}

type submitMessageRequest struct {
	mqcontracts.MessageReceivedPayload
	// 可选，覆盖 track_unanswered
	Mode string `json:"mode"`
}

// SubmitMessage handles POST /api/v1/messages
func (h *TriageHandler) SubmitMessage(c *gin.Context) {
	var req submitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	mode := req.MessageReceivedPayload.Mode()
	if req.Mode != "" {
		mode = model.ParseMode(req.Mode)
	}

	ctx := c.Request.Context()
	out, err := h.processor.ProcessMessage(ctx, req.ToInboundMessage(), mode)
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("Failed to process submitted message",
			zap.String("source_id", req.SourceID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, out)
}

// ListUnreminded handles GET /api/v1/records/unreminded
func (h *TriageHandler) ListUnreminded(c *gin.Context) {
	ctx := c.Request.Context()
	records, err := h.records.ListUnreminded(ctx)
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("Failed to list unreminded records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
		return
	}
	if records == nil {
		records = []model.TriageRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// TriggerSweep handles POST /api/v1/reminders/sweep
func (h *TriageHandler) TriggerSweep(c *gin.Context) {
	ctx := c.Request.Context()
	payloads, err := h.sweeper.RunSweep(ctx)
	if payloads == nil {
		payloads = []model.ReminderPayload{}
	}
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("Manual reminder sweep failed",
			zap.Int("reminded", len(payloads)),
			zap.Error(err),
		)
		// 已认领的记录不会回滚，把部分结果一起返回
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "sweep failed",
			"reminded": payloads,
			"count":    len(payloads),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reminded": payloads,
		"count":    len(payloads),
	})
}
