package compliance

import (
	"sort"

	"github.com/foodhouse/menucheck_backend/models"
	"github.com/shopspring/decimal"
)

const dayFormat = "2006-01-02"

// buildEvidence assembles the day-level proof for one rule outcome. Day lists
// come back sorted ascending and never nil, so equal inputs always serialize
// to the same bytes.
func buildEvidence(expected, actual int, foundDays, allDays []string, weeklyAverage string) models.Evidence {
	found := append([]string{}, foundDays...)
	sort.Strings(found)

	comparison := models.Classify(expected, actual)
	if comparison == models.ComparisonEven {
		// An even outcome carries no day lists: the rule was met exactly, so
		// there is nothing to point at.
		found = []string{}
	}

	missing := []string{}
	if comparison == models.ComparisonUnder {
		isFound := make(map[string]bool, len(found))
		for _, day := range found {
			isFound[day] = true
		}
		sorted := append([]string{}, allDays...)
		sort.Strings(sorted)
		short := expected - actual
		for _, day := range sorted {
			if len(missing) == short {
				break
			}
			if !isFound[day] {
				missing = append(missing, day)
			}
		}
	}

	expectedCopy := expected
	return models.Evidence{
		ExpectedCount: &expectedCopy,
		ActualCount:   actual,
		Comparison:    comparison,
		FoundOnDays:   found,
		MissingOnDays: missing,
		WeeklyAverage: weeklyAverage,
	}
}

// degradedEvidence is the placeholder recorded for a rule that could not be
// evaluated. The null expected count distinguishes it from a genuine even.
func degradedEvidence() models.Evidence {
	return models.Evidence{
		ExpectedCount: nil,
		ActualCount:   0,
		Comparison:    models.ComparisonEven,
		FoundOnDays:   []string{},
		MissingOnDays: []string{},
	}
}

// weeklyAverageFor reports how often the rule actually hit per week, rendered
// at fixed precision so repeated runs agree byte for byte.
func weeklyAverageFor(actual, weeks int) string {
	if weeks <= 0 {
		return ""
	}
	return decimal.NewFromInt(int64(actual)).
		Div(decimal.NewFromInt(int64(weeks))).
		StringFixed(2)
}
