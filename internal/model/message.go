package model

import (
	"strings"
	"time"
)

// InboundMessage 是一条待分流的消息，核心流程只读不改
type InboundMessage struct {
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	SourceID   string    `json:"source_id,omitempty"`
}

type Category string

const (
	CategoryUrgent      Category = "urgent"
	CategoryFollowUp    Category = "follow_up"
	CategoryLowPriority Category = "low_priority"
	CategoryGeneral     Category = "general"
)

// Priority 越小越优先
func (c Category) Priority() int {
	switch c {
	case CategoryUrgent:
		return 1
	case CategoryFollowUp:
		return 2
	case CategoryLowPriority:
		return 4
	default:
		return 3
	}
}

func (c Category) Label() string {
	switch c {
	case CategoryUrgent:
		return "Urgent"
	case CategoryFollowUp:
		return "Follow-up"
	case CategoryLowPriority:
		return "Low Priority"
	default:
		return "General"
	}
}

// ParseCategory 接受内部值或显示名，未知值归为 General
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent":
		return CategoryUrgent
	case "follow_up", "follow-up", "followup":
		return CategoryFollowUp
	case "low_priority", "low priority", "lowpriority":
		return CategoryLowPriority
	default:
		return CategoryGeneral
	}
}

type Classification struct {
	Category Category `json:"category"`
	Priority int      `json:"priority"`
}

func NewClassification(c Category) Classification {
	return Classification{Category: c, Priority: c.Priority()}
}

// MaxSuggestions 每组建议回复的上限
const MaxSuggestions = 3

// SuggestionSet 1 到 3 条建议回复
type SuggestionSet []string

// Mode 决定编排器处理完后是否落库
type Mode int

const (
	ModeDigest Mode = iota
	ModeTrackUnanswered
)

func (m Mode) String() string {
	if m == ModeTrackUnanswered {
		return "track_unanswered"
	}
	return "digest"
}

func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "track_unanswered") {
		return ModeTrackUnanswered
	}
	return ModeDigest
}
