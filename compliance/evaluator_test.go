package compliance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/foodhouse/menucheck_backend/models"
)

// marchDays builds a Sunday-Thursday month of menus. fruitDays lists the
// dates (day of month) on which fresh fruit is served.
func marchDays(fruitDays map[int]bool) []*models.MenuDay {
	var days []*models.MenuDay
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Friday || d.Weekday() == time.Saturday {
			continue
		}
		items := map[string][]string{"עיקרית": {"עוף בגריל"}}
		if fruitDays[d.Day()] {
			items["קינוח"] = []string{"סלט פירות"}
		}
		days = append(days, &models.MenuDay{
			Date:      d,
			DayOfWeek: d.Weekday().String(),
			Items:     items,
		})
	}
	return days
}

func TestEvaluatorUnderWithMissingDays(t *testing.T) {
	// Fruit on 10 days, rule demands 12 per month.
	fruitDays := map[int]bool{1: true, 2: true, 3: true, 8: true, 9: true, 10: true, 15: true, 16: true, 17: true, 22: true}
	days := marchDays(fruitDays)

	rule := &models.ComplianceRule{
		ID:            1,
		Name:          "Fresh Fruit",
		RuleType:      models.RuleTypeMinFrequency,
		MatchCriteria: models.MatchCriteria{Keywords: []string{"פירות"}},
		ExpectedCount: 12,
		Period:        models.RulePeriodPerMonth,
		Priority:      1,
	}

	evaluator := NewEvaluator(4, nil)
	outcomes := evaluator.Evaluate(context.Background(), []*models.ComplianceRule{rule}, days, NewMatcher(nil))
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}

	outcome := outcomes[0]
	if outcome.Warning {
		t.Fatalf("unexpected warning: %s", outcome.Finding)
	}
	evidence := outcome.Evidence
	if evidence.ExpectedCount == nil || *evidence.ExpectedCount != 12 {
		t.Fatalf("expected_count = %v, want 12", evidence.ExpectedCount)
	}
	if evidence.ActualCount != 10 {
		t.Fatalf("actual_count = %d, want 10", evidence.ActualCount)
	}
	if evidence.Comparison != models.ComparisonUnder {
		t.Fatalf("comparison = %s, want under", evidence.Comparison)
	}
	if len(evidence.FoundOnDays) != 10 {
		t.Fatalf("found %d days, want 10", len(evidence.FoundOnDays))
	}
	// Shortfall of 2 means exactly 2 representative missing days, the
	// earliest unmatched dates in the month.
	if len(evidence.MissingOnDays) != 2 {
		t.Fatalf("missing days = %v, want 2 entries", evidence.MissingOnDays)
	}
	if evidence.MissingOnDays[0] != "2026-03-04" || evidence.MissingOnDays[1] != "2026-03-05" {
		t.Fatalf("missing days = %v, want [2026-03-04 2026-03-05]", evidence.MissingOnDays)
	}
}

func TestEvaluatorPerWeekExpectedScalesWithWeeks(t *testing.T) {
	days := marchDays(map[int]bool{2: true, 9: true})
	weeks := distinctWeeks(days)
	if weeks == 0 {
		t.Fatalf("no weeks derived from days")
	}

	rule := &models.ComplianceRule{
		ID:            2,
		Name:          "Fish Main",
		RuleType:      models.RuleTypeMinFrequency,
		MatchCriteria: models.MatchCriteria{Keywords: []string{"פירות"}},
		ExpectedCount: 1,
		Period:        models.RulePeriodPerWeek,
	}

	evaluator := NewEvaluator(2, nil)
	outcomes := evaluator.Evaluate(context.Background(), []*models.ComplianceRule{rule}, days, NewMatcher(nil))
	evidence := outcomes[0].Evidence
	if evidence.ExpectedCount == nil || *evidence.ExpectedCount != weeks {
		t.Fatalf("expected_count = %v, want %d (1 per week x %d weeks)", evidence.ExpectedCount, weeks, weeks)
	}
	if evidence.WeeklyAverage == "" {
		t.Fatalf("per-week rule must carry a weekly average")
	}
}

func TestEvaluatorMalformedRuleDegradesWithoutAborting(t *testing.T) {
	days := marchDays(map[int]bool{1: true, 2: true})

	good := &models.ComplianceRule{
		ID:            1,
		Name:          "Fresh Fruit",
		RuleType:      models.RuleTypeMinFrequency,
		MatchCriteria: models.MatchCriteria{Keywords: []string{"פירות"}},
		ExpectedCount: 1,
		Period:        models.RulePeriodPerMonth,
	}
	// No keywords, no category, nothing linked: unevaluable.
	bad := &models.ComplianceRule{
		ID:            2,
		Name:          "Empty Rule",
		RuleType:      models.RuleTypeMinFrequency,
		ExpectedCount: 3,
		Period:        models.RulePeriodPerMonth,
	}

	evaluator := NewEvaluator(2, nil)
	outcomes := evaluator.Evaluate(context.Background(), []*models.ComplianceRule{good, bad}, days, NewMatcher(nil))

	if outcomes[0].Warning {
		t.Fatalf("good rule flagged as warning")
	}
	if outcomes[0].Evidence.Comparison != models.ComparisonAbove {
		t.Fatalf("good rule comparison = %s, want above", outcomes[0].Evidence.Comparison)
	}

	if !outcomes[1].Warning {
		t.Fatalf("malformed rule must degrade to a warning result")
	}
	if outcomes[1].Evidence.Comparison != models.ComparisonEven {
		t.Fatalf("degraded comparison = %s, want even", outcomes[1].Evidence.Comparison)
	}
	if outcomes[1].Evidence.ExpectedCount != nil {
		t.Fatalf("degraded expected_count must be null")
	}
}

func TestEvaluatorOutputOrderMatchesInputOrder(t *testing.T) {
	days := marchDays(map[int]bool{1: true})

	var rules []*models.ComplianceRule
	for i := 1; i <= 20; i++ {
		rules = append(rules, &models.ComplianceRule{
			ID:            i,
			Name:          fmt.Sprintf("Rule %02d", i),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"פירות"}},
			ExpectedCount: 1,
			Period:        models.RulePeriodPerMonth,
		})
	}

	evaluator := NewEvaluator(8, nil)
	outcomes := evaluator.Evaluate(context.Background(), rules, days, NewMatcher(nil))
	for i, outcome := range outcomes {
		if outcome.Rule.ID != rules[i].ID {
			t.Fatalf("outcome %d is for rule %d, want %d", i, outcome.Rule.ID, rules[i].ID)
		}
	}
}

func TestClassifyPartition(t *testing.T) {
	// Every (expected, actual) pair lands in exactly one bucket.
	for expected := 0; expected <= 5; expected++ {
		for actual := 0; actual <= 5; actual++ {
			got := models.Classify(expected, actual)
			var want models.Comparison
			switch {
			case actual > expected:
				want = models.ComparisonAbove
			case actual < expected:
				want = models.ComparisonUnder
			default:
				want = models.ComparisonEven
			}
			if got != want {
				t.Fatalf("Classify(%d, %d) = %s, want %s", expected, actual, got, want)
			}
		}
	}
}
