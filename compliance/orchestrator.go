package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/models"
	"github.com/foodhouse/menucheck_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const runLockTTL = 2 * time.Minute

// RunLock is a held per-period run lock.
type RunLock interface {
	Release(ctx context.Context) error
}

// RunLocker hands out run locks. Backed by Redis in the server, by an
// in-memory fake in tests.
type RunLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (RunLock, error)
}

type redisRunLock struct {
	lock *redislock.Lock
}

func (l redisRunLock) Release(ctx context.Context) error {
	return l.lock.Release(ctx)
}

// RedisRunLocker adapts the shared redislock client to RunLocker. A lock
// already held by another run surfaces as a check-in-progress conflict.
type RedisRunLocker struct {
	Client *redislock.Client
}

func (r *RedisRunLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (RunLock, error) {
	lock, err := r.Client.Obtain(ctx, key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, utils.ErrorCheckInProgress
	}
	if err != nil {
		return nil, err
	}
	return redisRunLock{lock: lock}, nil
}

// Orchestrator coordinates one compliance run end to end: take the period
// lock, snapshot rules and catalog, evaluate, then swap the stored results in
// a single transaction.
type Orchestrator struct {
	DB     *gorm.DB
	Locker RunLocker
	Logger *logrus.Logger

	Evaluator *Evaluator
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		DB:        config.GetDB(),
		Locker:    &RedisRunLocker{Client: config.GetRedisLock()},
		Logger:    config.GetLogger(),
		Evaluator: NewEvaluator(config.EvalWorkerCount(), config.GetLogger()),
	}
}

func runLockKey(siteId, month, year int) string {
	return fmt.Sprintf("menucheck:%d:%d:%d", siteId, month, year)
}

// RunCheck evaluates all active rules against a site's menu for one month.
// The first run of a period creates the check row; later runs for the same
// period update it in place, exactly as RerunCheck does.
func (o *Orchestrator) RunCheck(ctx context.Context, siteId, month, year int, filePath *string) (*models.MenuCheck, error) {
	if err := utils.ValidateResourceId[models.Site](ctx, siteId); err != nil {
		return nil, err
	}

	check, err := models.FindMenuCheckForPeriod(ctx, siteId, month, year)
	if err != nil && err != utils.ErrorRecordNotFound {
		return nil, err
	}
	if check == nil {
		check = &models.MenuCheck{SiteId: siteId, Month: month, Year: year}
	}
	if filePath != nil {
		check.FilePath = filePath
	}

	return o.run(ctx, check)
}

// RerunCheck re-executes an existing check against the current rule set and
// menu data, replacing its stored results wholesale.
func (o *Orchestrator) RerunCheck(ctx context.Context, checkId int) (*models.MenuCheck, error) {
	check, err := models.GetMenuCheck(ctx, checkId)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, check)
}

func (o *Orchestrator) run(ctx context.Context, check *models.MenuCheck) (*models.MenuCheck, error) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	actor, ok := utils.GetRunActorFromContext(ctx)
	if !ok {
		actor = "System"
	}
	logger := o.Logger.WithFields(logrus.Fields{
		"field":          "ComplianceRun",
		"site_id":        check.SiteId,
		"month":          check.Month,
		"year":           check.Year,
		"actor":          actor,
		"correlation_id": correlationId,
	})

	lock, err := o.Locker.Obtain(ctx, runLockKey(check.SiteId, check.Month, check.Year), runLockTTL)
	if err != nil {
		if err == utils.ErrorCheckInProgress {
			logger.Warn("run rejected: another check for this period is in progress")
		}
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			logger.Warn("run lock release failed: " + releaseErr.Error())
		}
	}()

	days, err := models.GetMenuDays(ctx, check.SiteId, check.Month, check.Year)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, utils.ErrorNoMenuData
	}

	rules, err := models.GetAllComplianceRules(ctx, true)
	if err != nil {
		return nil, err
	}

	// The first run of a period persists the check row now, before anything
	// references it. Registered dishes record which check discovered them.
	if check.ID == 0 {
		if err := o.DB.WithContext(ctx).Create(check).Error; err != nil {
			return nil, err
		}
	}

	// Dishes the catalog has never seen get inserted before the snapshot, so
	// they show up in the unassigned filter even when no rule matches them.
	if _, err := models.RegisterMenuDishes(ctx, days, &check.ID); err != nil {
		return nil, err
	}

	entries, err := models.ListDishCatalog(ctx, models.DishCatalogFilter{})
	if err != nil {
		return nil, err
	}
	entries, err = o.checkCatalogIntegrity(ctx, logger, entries)
	if err != nil {
		return nil, err
	}

	outcomes := o.Evaluator.Evaluate(ctx, rules, days, NewMatcher(entries))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		check.CheckedAt = now
		applyCounters(check, outcomes)
		if err := tx.Save(check).Error; err != nil {
			return err
		}

		if err := tx.Where("check_id = ?", check.ID).Delete(&models.CheckResult{}).Error; err != nil {
			return err
		}

		results := make([]*models.CheckResult, 0, len(outcomes))
		for _, outcome := range outcomes {
			finding := outcome.Finding
			results = append(results, &models.CheckResult{
				CheckId:      check.ID,
				RuleId:       outcome.Rule.ID,
				RuleName:     outcome.Rule.Name,
				RuleCategory: outcome.Rule.Category,
				Warning:      &outcome.Warning,
				FindingText:  &finding,
				Evidence:     outcome.Evidence,
			})
		}
		if len(results) == 0 {
			return nil
		}
		return tx.Create(&results).Error
	})
	if err != nil {
		config.LogError(o.Logger, "compliance", "run", correlationId, check, err)
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"check_id":     check.ID,
		"rules":        len(outcomes),
		"days":         len(days),
		"dishes_under": check.DishesUnder,
		"warnings":     check.Warnings,
	}).Info("compliance run completed")
	return check, nil
}

// checkCatalogIntegrity handles catalog entries that point at rules which no
// longer exist. Strict mode fails the run; otherwise the entry is treated as
// unlinked for this run only.
func (o *Orchestrator) checkCatalogIntegrity(ctx context.Context, logger *logrus.Entry, entries []*models.DishCatalogEntry) ([]*models.DishCatalogEntry, error) {
	allRules, err := models.GetAllComplianceRules(ctx, false)
	if err != nil {
		return nil, err
	}
	known := make(map[int]bool, len(allRules))
	for _, rule := range allRules {
		known[rule.ID] = true
	}

	strict := config.StrictCatalogIntegrity()
	cleaned := make([]*models.DishCatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ComplianceRuleId != nil && !known[*entry.ComplianceRuleId] {
			if strict {
				return nil, fmt.Errorf("dish %q references missing rule %d", entry.DishName, *entry.ComplianceRuleId)
			}
			logger.WithFields(logrus.Fields{
				"dish_id": entry.ID,
				"rule_id": *entry.ComplianceRuleId,
			}).Warn("dish references missing rule, treating as unlinked")
			unlinked := *entry
			unlinked.ComplianceRuleId = nil
			cleaned = append(cleaned, &unlinked)
			continue
		}
		cleaned = append(cleaned, entry)
	}
	return cleaned, nil
}

// applyCounters recomputes the aggregate counters from the outcomes they
// summarize. Persisted in the same transaction as the results, so readers can
// never observe the two disagreeing.
func applyCounters(check *models.MenuCheck, outcomes []RuleOutcome) {
	check.DishesAbove = 0
	check.DishesUnder = 0
	check.DishesEven = 0
	check.CriticalFindings = 0
	check.Warnings = 0

	for _, outcome := range outcomes {
		switch outcome.Evidence.Comparison {
		case models.ComparisonAbove:
			check.DishesAbove++
		case models.ComparisonUnder:
			check.DishesUnder++
		default:
			check.DishesEven++
		}
		if outcome.Warning {
			check.Warnings++
			continue
		}
		if violates(outcome.Rule.RuleType, outcome.Evidence.Comparison) && outcome.Rule.Priority <= 1 {
			check.CriticalFindings++
		}
	}
}

func violates(ruleType models.RuleType, comparison models.Comparison) bool {
	switch ruleType {
	case models.RuleTypeMinFrequency:
		return comparison == models.ComparisonUnder
	case models.RuleTypeMaxFrequency:
		return comparison == models.ComparisonAbove
	default:
		return comparison != models.ComparisonEven
	}
}
