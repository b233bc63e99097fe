package model

import (
	"errors"
	"fmt"
	"strings"
)

// Intent 一个意图关键词及其预设回复
type Intent struct {
	Keyword string   `yaml:"keyword" json:"keyword"`
	Replies []string `yaml:"replies" json:"replies"`
}

// IntentCatalog 有序的意图表，构造后不可变
type IntentCatalog struct {
	intents []Intent
}

func NewIntentCatalog(intents []Intent) (*IntentCatalog, error) {
	if len(intents) == 0 {
		return nil, errors.New("intent catalog is empty")
	}
	seen := make(map[string]struct{}, len(intents))
	copied := make([]Intent, 0, len(intents))
	for i, in := range intents {
		kw := strings.TrimSpace(in.Keyword)
		if kw == "" {
			return nil, fmt.Errorf("intent %d has empty keyword", i)
		}
		if _, dup := seen[kw]; dup {
			return nil, fmt.Errorf("duplicate intent keyword %q", kw)
		}
		if len(in.Replies) == 0 || len(in.Replies) > MaxSuggestions {
			return nil, fmt.Errorf("intent %q must have 1 to %d replies, got %d", kw, MaxSuggestions, len(in.Replies))
		}
		seen[kw] = struct{}{}
		copied = append(copied, Intent{Keyword: kw, Replies: append([]string(nil), in.Replies...)})
	}
	return &IntentCatalog{intents: copied}, nil
}

func (c *IntentCatalog) Len() int { return len(c.intents) }

// Keywords 按声明顺序返回关键词
func (c *IntentCatalog) Keywords() []string {
	out := make([]string, len(c.intents))
	for i, in := range c.intents {
		out[i] = in.Keyword
	}
	return out
}

// Replies 返回第 i 个意图回复的副本
func (c *IntentCatalog) Replies(i int) SuggestionSet {
	return append(SuggestionSet(nil), c.intents[i].Replies...)
}

func (c *IntentCatalog) Intents() []Intent {
	out := make([]Intent, len(c.intents))
	for i, in := range c.intents {
		out[i] = Intent{Keyword: in.Keyword, Replies: append([]string(nil), in.Replies...)}
	}
	return out
}

func DefaultIntents() []Intent {
	return []Intent{
		{Keyword: "meeting", Replies: []string{"What time works for you?", "Let’s schedule it.", "Do we need an agenda?"}},
		{Keyword: "urgent", Replies: []string{"Got it! I'll handle it ASAP.", "I'll prioritize this.", "I'll get back to you shortly."}},
		{Keyword: "invoice", Replies: []string{"Please find the attached invoice.", "I'll check the payment status.", "Can you share the invoice number?"}},
		{Keyword: "support", Replies: []string{"How can I assist you?", "Can you provide more details?", "I'll forward this to the support team."}},
		{Keyword: "deadline", Replies: []string{"Understood! I'll ensure it's completed on time.", "I'll work on it and update you soon.", "Can you confirm the due date?"}},
		{Keyword: "thank you", Replies: []string{"You're welcome!", "Happy to help!", "Glad I could assist!"}},
	}
}

func DefaultFallbackReplies() SuggestionSet {
	return SuggestionSet{"Thanks for reaching out!", "I'll check and update you.", "Let me get back to you soon."}
}
