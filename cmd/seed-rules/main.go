package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/models"
	"github.com/foodhouse/menucheck_backend/utils"
)

func main() {
	siteName := flag.String("site", "", "Optional: also create a site with this name if it does not exist.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()

	ctx = utils.SetRunActorInContext(ctx, "SeedRules")

	seeded := 0
	for _, input := range defaultRules() {
		var existing models.ComplianceRule
		err := db.WithContext(ctx).Where("name = ?", input.Name).Take(&existing).Error
		if err == nil {
			continue
		}
		if _, err := models.CreateComplianceRule(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed rule %q: %v\n", input.Name, err)
			os.Exit(1)
		}
		seeded++
	}
	fmt.Printf("seeded %d rules\n", seeded)

	if name := strings.TrimSpace(*siteName); name != "" {
		var existing models.Site
		err := db.WithContext(ctx).Where("name = ?", name).Take(&existing).Error
		if err != nil {
			if _, err := models.CreateSite(ctx, &models.NewSite{Name: name}); err != nil {
				fmt.Fprintf(os.Stderr, "failed to create site %q: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("created site %q\n", name)
		}
	}
}

// defaultRules is the baseline institutional-catering rule set. Names double
// as idempotency keys, so re-running the seeder never duplicates rules.
func defaultRules() []*models.NewComplianceRule {
	return []*models.NewComplianceRule{
		{
			Name:          "Fresh Fruit",
			Description:   utils.NewString("Fresh fruit must be served most working days of the month."),
			Category:      utils.NewString("nutrition"),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"פרי", "פירות", "fruit"}},
			ExpectedCount: 12,
			Period:        models.RulePeriodPerMonth,
			Priority:      1,
		},
		{
			Name:          "Fish Main",
			Description:   utils.NewString("A fish main course at least once a week."),
			Category:      utils.NewString("nutrition"),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"דג", "דגים", "fish", "salmon"}, DishCategory: models.DishCategoryFish},
			ExpectedCount: 1,
			Period:        models.RulePeriodPerWeek,
			Priority:      1,
		},
		{
			Name:          "Legume Dish",
			Description:   utils.NewString("Legume-based dishes at least twice a week."),
			Category:      utils.NewString("nutrition"),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"עדשים", "חומוס", "שעועית", "lentil", "beans"}, DishCategory: models.DishCategoryLegumes},
			ExpectedCount: 2,
			Period:        models.RulePeriodPerWeek,
			Priority:      2,
		},
		{
			Name:          "Fried Food Limit",
			Description:   utils.NewString("Fried dishes at most once a week."),
			Category:      utils.NewString("health"),
			RuleType:      models.RuleTypeMaxFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"מטוגן", "שניצל", "צ'יפס", "fried"}},
			ExpectedCount: 1,
			Period:        models.RulePeriodPerWeek,
			Priority:      2,
		},
		{
			Name:          "Fresh Salad Bar",
			Description:   utils.NewString("Fresh salads must be available every working day."),
			Category:      utils.NewString("nutrition"),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"סלט", "salad"}, DishCategory: models.DishCategorySalads},
			ExpectedCount: 5,
			Period:        models.RulePeriodPerWeek,
			Priority:      1,
		},
		{
			Name:          "Soup of the Day",
			Description:   utils.NewString("A soup should be on the menu at least three times a week."),
			Category:      utils.NewString("variety"),
			RuleType:      models.RuleTypeMinFrequency,
			MatchCriteria: models.MatchCriteria{Keywords: []string{"מרק", "soup"}, DishCategory: models.DishCategorySoup},
			ExpectedCount: 3,
			Period:        models.RulePeriodPerWeek,
			Priority:      3,
		},
	}
}
