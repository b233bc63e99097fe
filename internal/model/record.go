package model

import (
	"fmt"
	"time"
)

// TriageRecord 未回复消息的持久记录，Reminded 只会从 false 变为 true 一次
type TriageRecord struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	Reminded  bool      `json:"reminded"`
}

// ReminderPayload 一次提醒扫描为被认领记录生成的提醒内容
type ReminderPayload struct {
	RecordID  int64     `json:"record_id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReminderPayload(r TriageRecord) ReminderPayload {
	return ReminderPayload{
		RecordID:  r.ID,
		Sender:    r.Sender,
		Subject:   r.Subject,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
	}
}

// Text 渲染成发送给用户的提醒文本
func (p ReminderPayload) Text() string {
	return fmt.Sprintf(
		"🔔 *Reminder: Unanswered Email!*\n🔹 *From:* %s\n🔹 *Subject:* %s\n🔹 *Category:* %s\n⏳ Please respond soon.",
		p.Sender, p.Subject, p.Category.Label(),
	)
}
