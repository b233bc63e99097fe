package classifier

import (
	"strings"

	"triagebot/internal/model"
)

// Rules 三组关键词，按 Urgent → FollowUp → LowPriority 顺序匹配
type Rules struct {
	Urgent      []string `yaml:"urgent"`
	FollowUp    []string `yaml:"follow_up"`
	LowPriority []string `yaml:"low_priority"`
}

func DefaultRules() Rules {
	return Rules{
		Urgent:      []string{"urgent", "immediate", "important", "asap", "action required"},
		FollowUp:    []string{"follow up", "reminder", "update", "check-in"},
		LowPriority: []string{"newsletter", "promotion", "sale", "discount", "subscription"},
	}
}

type group struct {
	category model.Category
	keywords []string
}

// Classifier 基于主题关键词的分类器，构造后只读，可并发使用
type Classifier struct {
	groups []group
}

func New(rules Rules) *Classifier {
	return &Classifier{groups: []group{
		{category: model.CategoryUrgent, keywords: normalize(rules.Urgent)},
		{category: model.CategoryFollowUp, keywords: normalize(rules.FollowUp)},
		{category: model.CategoryLowPriority, keywords: normalize(rules.LowPriority)},
	}}
}

// Classify 子串匹配，第一个命中的组胜出；都不命中为 General
func (c *Classifier) Classify(subject string) model.Classification {
	s := strings.ToLower(subject)
	for _, g := range c.groups {
		for _, kw := range g.keywords {
			if strings.Contains(s, kw) {
				return model.NewClassification(g.category)
			}
		}
	}
	return model.NewClassification(model.CategoryGeneral)
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
