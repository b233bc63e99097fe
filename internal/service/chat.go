package service

import (
	"errors"
	"fmt"
	"strings"

	"triagebot/internal/model"
)

var taskKeywords = []string{"task", "action", "to-do", "follow up", "assign"}

// DetectTask 团队聊天里含任务关键词的消息整体视为一条任务
func DetectTask(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range taskKeywords {
		if strings.Contains(lower, kw) {
			return strings.TrimSpace(text), true
		}
	}
	return "", false
}

// ChatReplies 聊天应用的固定回复：先整句匹配问候语，再按顺序子串匹配常见问题。构造后只读。
type ChatReplies struct {
	greetings map[string]string
	faq       []model.FAQEntry
}

func NewChatReplies(greetings map[string]string, faq []model.FAQEntry) (*ChatReplies, error) {
	c := &ChatReplies{greetings: make(map[string]string, len(greetings))}
	for phrase, reply := range greetings {
		key := strings.ToLower(strings.TrimSpace(phrase))
		if key == "" || reply == "" {
			return nil, errors.New("greeting phrase and reply must not be empty")
		}
		c.greetings[key] = reply
	}
	for i, entry := range faq {
		q := strings.ToLower(strings.TrimSpace(entry.Question))
		if q == "" || entry.Answer == "" {
			return nil, fmt.Errorf("faq entry %d needs both question and answer", i)
		}
		c.faq = append(c.faq, model.FAQEntry{Question: q, Answer: entry.Answer})
	}
	return c, nil
}

func DefaultChatReplies() *ChatReplies {
	c, _ := NewChatReplies(model.DefaultGreetings(), model.DefaultFAQ())
	return c
}

// AutoReply 整句精确匹配问候语（忽略大小写和首尾空白）
func (c *ChatReplies) AutoReply(text string) (string, bool) {
	reply, ok := c.greetings[strings.ToLower(strings.TrimSpace(text))]
	return reply, ok
}

// FAQReply 返回第一个被消息包含的常见问题的答案
func (c *ChatReplies) FAQReply(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range c.faq {
		if strings.Contains(lower, entry.Question) {
			return entry.Answer, true
		}
	}
	return "", false
}
