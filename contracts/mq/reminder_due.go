package mq

import "time"

const RoutingKeyReminderDue = "reminder.due"

// ReminderDuePayload 提醒事件的 payload，由提醒扫描发布
type ReminderDuePayload struct {
	RecordID  int64     `json:"record_id"`
	Target    string    `json:"target"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
