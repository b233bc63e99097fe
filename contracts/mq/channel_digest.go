package mq

import "time"

const RoutingKeyChannelDigest = "digest.daily"

// ChannelDigestPayload 每日频道摘要事件的 payload
type ChannelDigestPayload struct {
	Target      string    `json:"target"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}
