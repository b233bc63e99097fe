package model

// FAQEntry 常见问题：消息包含 Question（忽略大小写）即回复 Answer
type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// DefaultGreetings 整句匹配的问候语及自动回复，key 为小写
func DefaultGreetings() map[string]string {
	return map[string]string{
		"hi":          "Hello! How can I assist you today? 😊",
		"hello":       "Hi there! Need any help? 🚀",
		"how are you": "I'm an AI assistant, always ready to help! 🤖",
	}
}

func DefaultFAQ() []FAQEntry {
	return []FAQEntry{
		{Question: "what are your services?", Answer: "We offer AI-powered chat automation, smart replies, and data analytics! 🚀"},
		{Question: "how to contact support?", Answer: "You can reach us at support@example.com or call +1234567890 📞"},
		{Question: "where are you located?", Answer: "We are based in Bangalore, India! 🌍"},
	}
}
