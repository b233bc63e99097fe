package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "triagebot/contracts/mq"
	"triagebot/internal/model"
)

// Notifier 把提醒文本送到目标（频道、聊天、用户）
type Notifier interface {
	Deliver(ctx context.Context, target string, reminder model.ReminderPayload) error
}

// DigestPoster 把每日频道摘要发到目标频道
type DigestPoster interface {
	PostDigest(ctx context.Context, target, text string) error
}

// EventPublisher 由 pkg/mq.Publisher 实现
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// MQNotifier 以 reminder.due 事件发布提醒，由下游投递服务负责真正发送
type MQNotifier struct {
	publisher EventPublisher
}

func NewMQNotifier(publisher EventPublisher) *MQNotifier {
	return &MQNotifier{publisher: publisher}
}

func (n *MQNotifier) Deliver(ctx context.Context, target string, reminder model.ReminderPayload) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return n.publisher.Publish(ctx, mqcontracts.RoutingKeyReminderDue, mqcontracts.ReminderDuePayload{
		RecordID:  reminder.RecordID,
		Target:    target,
		Sender:    reminder.Sender,
		Subject:   reminder.Subject,
		Category:  string(reminder.Category),
		Text:      reminder.Text(),
		CreatedAt: reminder.CreatedAt,
	})
}

func (n *MQNotifier) PostDigest(ctx context.Context, target, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return n.publisher.Publish(ctx, mqcontracts.RoutingKeyChannelDigest, mqcontracts.ChannelDigestPayload{
		Target:      target,
		Text:        text,
		GeneratedAt: time.Now().UTC(),
	})
}

// LogNotifier 只写日志，没有配置 MQ 时使用
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(_ context.Context, target string, reminder model.ReminderPayload) error {
	n.logger.Info("Reminder",
		zap.String("target", target),
		zap.Int64("record_id", reminder.RecordID),
		zap.String("text", reminder.Text()),
	)
	return nil
}

func (n *LogNotifier) PostDigest(_ context.Context, target, text string) error {
	n.logger.Info("Channel digest",
		zap.String("target", target),
		zap.String("text", text),
	)
	return nil
}
