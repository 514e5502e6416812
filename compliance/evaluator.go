package compliance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/foodhouse/menucheck_backend/models"
	"github.com/sirupsen/logrus"
)

// RuleOutcome is one rule's verdict before persistence.
type RuleOutcome struct {
	Rule     *models.ComplianceRule
	Warning  bool
	Finding  string
	Evidence models.Evidence
}

// Evaluator runs every active rule against a month of menu days. Rules are
// independent of each other, so they fan out over a bounded worker pool;
// outcomes land at their rule's index, keeping the output order equal to the
// input order regardless of scheduling.
type Evaluator struct {
	Workers int
	Logger  *logrus.Logger
}

func NewEvaluator(workers int, logger *logrus.Logger) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{Workers: workers, Logger: logger}
}

func (e *Evaluator) Evaluate(ctx context.Context, rules []*models.ComplianceRule, days []*models.MenuDay, matcher *Matcher) []RuleOutcome {
	outcomes := make([]RuleOutcome, len(rules))
	if len(rules) == 0 {
		return outcomes
	}

	weeks := distinctWeeks(days)
	allDays := make([]string, 0, len(days))
	for _, day := range days {
		allDays = append(allDays, day.Date.Format(dayFormat))
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = e.evaluateRule(rules[i], days, allDays, weeks, matcher)
			}
		}()
	}

	for i := range rules {
		select {
		case <-ctx.Done():
			// Stop feeding; already-dispatched rules finish normally.
			close(jobs)
			wg.Wait()
			return outcomes
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Output order is by rule id regardless of how rules were handed in, so
	// stored result sequences are stable across runs.
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Rule.ID < outcomes[j].Rule.ID
	})
	return outcomes
}

func (e *Evaluator) evaluateRule(rule *models.ComplianceRule, days []*models.MenuDay, allDays []string, weeks int, matcher *Matcher) RuleOutcome {
	if reason := malformedReason(rule, matcher); reason != "" {
		if e.Logger != nil {
			e.Logger.WithFields(logrus.Fields{
				"field":     "Evaluator",
				"rule_id":   rule.ID,
				"rule_name": rule.Name,
			}).Warn("rule skipped: " + reason)
		}
		return RuleOutcome{
			Rule:     rule,
			Warning:  true,
			Finding:  fmt.Sprintf("Rule %q could not be evaluated: %s.", rule.Name, reason),
			Evidence: degradedEvidence(),
		}
	}

	expected := rule.ExpectedCount
	if rule.Period == models.RulePeriodPerWeek {
		expected = rule.ExpectedCount * weeks
	}

	var foundDays []string
	for _, day := range days {
		if matcher.RuleMatchesDay(rule, day) {
			foundDays = append(foundDays, day.Date.Format(dayFormat))
		}
	}
	actual := len(foundDays)

	weeklyAverage := ""
	if rule.Period == models.RulePeriodPerWeek {
		weeklyAverage = weeklyAverageFor(actual, weeks)
	}

	evidence := buildEvidence(expected, actual, foundDays, allDays, weeklyAverage)
	return RuleOutcome{
		Rule:     rule,
		Finding:  findingText(rule, expected, actual, evidence.Comparison),
		Evidence: evidence,
	}
}

// malformedReason reports why a rule cannot produce a meaningful result, or ""
// when it can. A bad rule degrades to a warning result instead of failing the
// whole run.
func malformedReason(rule *models.ComplianceRule, matcher *Matcher) string {
	if rule.ExpectedCount <= 0 {
		return "expected count must be positive"
	}
	if !rule.RuleType.Valid() {
		return "unknown rule type"
	}
	if !rule.Period.Valid() {
		return "unknown period"
	}
	if len(rule.MatchCriteria.Keywords) == 0 &&
		rule.MatchCriteria.DishCategory == "" &&
		!matcher.HasLinkedEntries(rule.ID) {
		return "no keywords, category or linked dishes to match against"
	}
	return ""
}

func findingText(rule *models.ComplianceRule, expected, actual int, comparison models.Comparison) string {
	switch rule.RuleType {
	case models.RuleTypeMinFrequency:
		if comparison == models.ComparisonUnder {
			return fmt.Sprintf("%s appeared on %d days, below the required minimum of %d.", rule.Name, actual, expected)
		}
		return fmt.Sprintf("%s appeared on %d days, meeting the required minimum of %d.", rule.Name, actual, expected)
	case models.RuleTypeMaxFrequency:
		if comparison == models.ComparisonAbove {
			return fmt.Sprintf("%s appeared on %d days, exceeding the allowed maximum of %d.", rule.Name, actual, expected)
		}
		return fmt.Sprintf("%s appeared on %d days, within the allowed maximum of %d.", rule.Name, actual, expected)
	default:
		if comparison == models.ComparisonEven {
			return fmt.Sprintf("%s appeared on exactly %d days as required.", rule.Name, expected)
		}
		return fmt.Sprintf("%s appeared on %d days instead of the required %d.", rule.Name, actual, expected)
	}
}

// distinctWeeks counts the ISO weeks actually served in. A month that starts
// mid-week still yields the weeks its days belong to, not a calendar estimate.
func distinctWeeks(days []*models.MenuDay) int {
	seen := map[[2]int]bool{}
	for _, day := range days {
		year, week := day.Date.ISOWeek()
		seen[[2]int{year, week}] = true
	}
	return len(seen)
}
