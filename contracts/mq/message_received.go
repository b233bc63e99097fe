package mq

import (
	"time"

	"triagebot/internal/model"
)

const RoutingKeyMessageReceived = "message.received"

// MessageReceivedPayload 新消息事件的 payload（邮件 / 团队聊天 / 聊天应用）
type MessageReceivedPayload struct {
	SourceID   string    `json:"source_id,omitempty"`
	Channel    string    `json:"channel,omitempty"` // email, team_chat, chat_app
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	// TrackUnanswered 为 true 时持久化分流记录以便后续提醒
	TrackUnanswered bool `json:"track_unanswered,omitempty"`
}

func (p MessageReceivedPayload) ToInboundMessage() model.InboundMessage {
	return model.InboundMessage{
		SourceID:   p.SourceID,
		Sender:     p.Sender,
		Subject:    p.Subject,
		Body:       p.Body,
		ReceivedAt: p.ReceivedAt,
	}
}

func (p MessageReceivedPayload) Mode() model.Mode {
	if p.TrackUnanswered {
		return model.ModeTrackUnanswered
	}
	return model.ModeDigest
}
