package service

import (
	"fmt"
	"io"
	"strings"
)

// WriteDigest 按给定顺序输出摘要，调用方负责先排序
func WriteDigest(w io.Writer, outcomes []Outcome) error {
	var b strings.Builder
	for _, o := range outcomes {
		if o.Skipped {
			continue
		}
		fmt.Fprintf(&b, "📩 Category: %s\n", o.Classification.Category.Label())
		fmt.Fprintf(&b, "🔹 From: %s\n", o.Message.Sender)
		fmt.Fprintf(&b, "🔹 Subject: %s\n", o.Message.Subject)
		if o.Summary != "" {
			fmt.Fprintf(&b, "📜 Summary: %s\n", o.Summary)
		}
		if o.Task != "" {
			fmt.Fprintf(&b, "📌 Task: %s\n", o.Task)
		}
		if o.AutoReply != "" {
			fmt.Fprintf(&b, "🤖 Auto Reply: %s\n", o.AutoReply)
		}
		if o.FAQReply != "" {
			fmt.Fprintf(&b, "❓ FAQ Answer: %s\n", o.FAQReply)
		}
		b.WriteString("💬 Suggested Replies:\n")
		for _, reply := range o.Suggestions {
			fmt.Fprintf(&b, " %s\n", reply)
		}
		if o.RecordID != 0 {
			fmt.Fprintf(&b, "📝 Tracked as record %d\n", o.RecordID)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
