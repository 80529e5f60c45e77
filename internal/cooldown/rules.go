package cooldown

import (
	"strings"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
)

// oneTimeCooldownHours makes a category effectively one-shot per
// recipient (ten years).
const oneTimeCooldownHours = 87600

// Rules is the immutable per-category policy table, loaded once at
// process start and read-only afterwards.
type Rules struct {
	byCategory map[string]domain.CooldownRule
}

func NewRules(rules []domain.CooldownRule) *Rules {
	byCategory := make(map[string]domain.CooldownRule, len(rules))
	for _, rule := range rules {
		category := strings.ToLower(strings.TrimSpace(rule.Category))
		if category == "" {
			continue
		}
		rule.Category = category
		byCategory[category] = rule
	}
	return &Rules{byCategory: byCategory}
}

func (r *Rules) Lookup(category string) (domain.CooldownRule, bool) {
	if r == nil {
		return domain.CooldownRule{}, false
	}
	rule, ok := r.byCategory[strings.ToLower(strings.TrimSpace(category))]
	return rule, ok
}

// DefaultRules is the operator-maintained policy table.
func DefaultRules() []domain.CooldownRule {
	return []domain.CooldownRule{
		{Category: "invitation", CooldownHours: oneTimeCooldownHours},
		{Category: "partner_outreach", CooldownHours: 168, MaxPerDay: 1},
		{Category: "wholesale_outreach", CooldownHours: 168, MaxPerDay: 1},
		{Category: "partner_followup", CooldownHours: 72, MaxPerDay: 2},
		{Category: "social_post", CooldownHours: 0, AllowDuplicates: true},
		{Category: "order_update", CooldownHours: 0, AllowDuplicates: true},
		{Category: "newsletter", CooldownHours: 24, MaxPerDay: 1},
	}
}
