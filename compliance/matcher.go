// Package compliance evaluates frequency rules against a month of parsed menu
// days and produces evidence-backed results.
package compliance

import (
	"strings"
	"sync"

	"github.com/foodhouse/menucheck_backend/models"
	"github.com/foodhouse/menucheck_backend/utils"
)

// Matcher decides whether a dish satisfies a rule. Signals are consulted in
// order: an explicit catalog link is authoritative, then the catalog category,
// then the rule's keywords. The catalog snapshot is taken once per run so all
// rules see the same view.
type Matcher struct {
	catalog   map[string]*models.DishCatalogEntry
	ruleLinks map[int]int

	// memo caches raw -> normalized names; guarded because the evaluator
	// calls in from worker goroutines.
	mu   sync.Mutex
	memo map[string]string
}

func NewMatcher(entries []*models.DishCatalogEntry) *Matcher {
	m := &Matcher{
		catalog:   make(map[string]*models.DishCatalogEntry, len(entries)),
		ruleLinks: map[int]int{},
		memo:      map[string]string{},
	}
	for _, entry := range entries {
		m.catalog[entry.NormalizedName] = entry
		if entry.ComplianceRuleId != nil {
			m.ruleLinks[*entry.ComplianceRuleId]++
		}
	}
	return m
}

// HasLinkedEntries reports whether any catalog entry is linked to the rule.
// A rule with no keywords, no category and no links can never match anything.
func (m *Matcher) HasLinkedEntries(ruleId int) bool {
	return m.ruleLinks[ruleId] > 0
}

func (m *Matcher) normalize(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.memo[name]; ok {
		return cached
	}
	normalized := utils.NormalizeDishName(name)
	m.memo[name] = normalized
	return normalized
}

// RuleMatchesDay reports whether at least one dish served that day satisfies
// the rule. A day counts once no matter how many dishes match.
func (m *Matcher) RuleMatchesDay(rule *models.ComplianceRule, day *models.MenuDay) bool {
	for _, name := range day.Items.DishNames() {
		if m.ruleMatchesDish(rule, name) {
			return true
		}
	}
	return false
}

func (m *Matcher) ruleMatchesDish(rule *models.ComplianceRule, rawName string) bool {
	normalized := m.normalize(rawName)
	if normalized == "" {
		return false
	}

	entry := m.catalog[normalized]

	// An explicit link decides the question either way.
	if entry != nil && entry.ComplianceRuleId != nil {
		return *entry.ComplianceRuleId == rule.ID
	}

	// Category is only decisive when both sides carry one.
	if entry != nil && entry.Category != nil && rule.MatchCriteria.DishCategory != "" {
		return string(*entry.Category) == string(rule.MatchCriteria.DishCategory)
	}

	for _, keyword := range rule.MatchCriteria.Keywords {
		kw := m.normalize(keyword)
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
