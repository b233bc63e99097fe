package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"triagebot/internal/model"
)

func TestClassify(t *testing.T) {
	c := New(DefaultRules())

	tests := []struct {
		name     string
		subject  string
		category model.Category
		priority int
	}{
		{name: "urgent keyword", subject: "URGENT: server down", category: model.CategoryUrgent, priority: 1},
		{name: "multi word urgent", subject: "Action Required: sign the form", category: model.CategoryUrgent, priority: 1},
		{name: "follow up", subject: "Quick follow up on yesterday", category: model.CategoryFollowUp, priority: 2},
		{name: "check-in", subject: "Weekly check-in", category: model.CategoryFollowUp, priority: 2},
		{name: "newsletter", subject: "Our monthly Newsletter", category: model.CategoryLowPriority, priority: 4},
		{name: "general", subject: "Lunch on Friday?", category: model.CategoryGeneral, priority: 3},
		{name: "empty", subject: "", category: model.CategoryGeneral, priority: 3},
		{name: "urgent beats low priority", subject: "Important: sale ends today", category: model.CategoryUrgent, priority: 1},
		{name: "follow up beats low priority", subject: "Reminder: subscription renewal", category: model.CategoryFollowUp, priority: 2},
		{name: "substring match", subject: "Product updates inside", category: model.CategoryFollowUp, priority: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.priority, got.Priority)
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := New(DefaultRules())
	for _, s := range []string{"asap please", "ASAP PLEASE", "AsAp Please"} {
		assert.Equal(t, model.CategoryUrgent, c.Classify(s).Category, s)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(DefaultRules())
	first := c.Classify("Reminder: promotion inside")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("Reminder: promotion inside"))
	}
}

func TestCustomRules(t *testing.T) {
	c := New(Rules{Urgent: []string{" P0 "}, LowPriority: []string{"fyi"}})
	assert.Equal(t, model.CategoryUrgent, c.Classify("p0 incident").Category)
	assert.Equal(t, model.CategoryLowPriority, c.Classify("FYI: notes").Category)
	assert.Equal(t, model.CategoryGeneral, c.Classify("urgent").Category)
}
