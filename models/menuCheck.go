package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/utils"
	"gorm.io/gorm"
)

// MenuItems holds one day's menu as category -> dish names, as produced by the
// menu-parsing collaborator.
type MenuItems map[string][]string

func (m MenuItems) Value() (driver.Value, error) {
	if m == nil {
		m = MenuItems{}
	}
	return json.Marshal(m)
}

func (m *MenuItems) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = MenuItems{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into MenuItems", value)
}

// DishNames flattens the day's items into raw dish names, order-stable across
// calls (categories sorted, then menu order within a category).
func (m MenuItems) DishNames() []string {
	cats := make([]string, 0, len(m))
	for cat := range m {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var names []string
	for _, cat := range cats {
		for _, name := range m[cat] {
			if strings.TrimSpace(name) != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// MenuDay is one parsed day of a site's menu. The (site_id, date) uniqueness
// mirrors the parser contract: dates fall within the month, no duplicates.
type MenuDay struct {
	ID         int       `gorm:"primary_key" json:"id"`
	SiteId     int       `gorm:"not null;uniqueIndex:idx_menu_day_site_date" json:"site_id"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:idx_menu_day_site_date" json:"date"`
	DayOfWeek  string    `gorm:"size:20;not null" json:"day_of_week"`
	WeekNumber int       `gorm:"not null" json:"week_number"`
	IsHoliday  *bool     `gorm:"not null;default:false" json:"is_holiday"`
	Items      MenuItems `gorm:"type:json" json:"items"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MenuCheck is one evaluation run of all rules against one site's menu for one
// month. Re-running replaces its CheckResult children in place.
type MenuCheck struct {
	ID     int   `gorm:"primary_key" json:"id"`
	SiteId int   `gorm:"not null;index" json:"site_id"`
	Site   *Site `gorm:"foreignKey:SiteId" json:"-"`

	Month    int     `gorm:"not null" json:"month"`
	Year     int     `gorm:"not null" json:"year"`
	FilePath *string `gorm:"size:500" json:"file_path"`

	// Aggregate counters. Written in the same transaction as the results they
	// summarize, so they can never diverge from the evidence-derived counts.
	DishesAbove      int `gorm:"not null;default:0" json:"dishes_above"`
	DishesUnder      int `gorm:"not null;default:0" json:"dishes_under"`
	DishesEven       int `gorm:"not null;default:0" json:"dishes_even"`
	CriticalFindings int `gorm:"not null;default:0" json:"critical_findings"`
	Warnings         int `gorm:"not null;default:0" json:"warnings"`

	CheckedAt time.Time `gorm:"not null" json:"checked_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Evidence is the day-level proof backing a rule's comparison outcome.
// Field order is fixed and day lists are always sorted ascending so identical
// inputs serialize byte-identically.
type Evidence struct {
	ExpectedCount *int       `json:"expected_count"`
	ActualCount   int        `json:"actual_count"`
	Comparison    Comparison `json:"comparison"`
	FoundOnDays   []string   `json:"found_on_days"`
	MissingOnDays []string   `json:"missing_on_days"`
	WeeklyAverage string     `json:"weekly_average,omitempty"`
}

func (e Evidence) Value() (driver.Value, error) {
	if e.FoundOnDays == nil {
		e.FoundOnDays = []string{}
	}
	if e.MissingOnDays == nil {
		e.MissingOnDays = []string{}
	}
	return json.Marshal(e)
}

func (e *Evidence) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	case nil:
		*e = Evidence{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Evidence", value)
}

// CheckResult is the outcome of one rule within one check. Rows are immutable:
// a re-run swaps the whole set, it never edits rows.
type CheckResult struct {
	ID      int `gorm:"primary_key" json:"id"`
	CheckId int `gorm:"not null;index" json:"check_id"`

	RuleId       int     `gorm:"not null" json:"rule_id"`
	RuleName     string  `gorm:"size:200;not null" json:"rule_name"`
	RuleCategory *string `gorm:"size:100" json:"rule_category"`

	// Warning marks a degraded result: the rule could not be evaluated
	// (malformed criteria) but the run carried on.
	Warning     *bool    `gorm:"not null;default:false" json:"warning"`
	FindingText *string  `gorm:"type:text" json:"finding_text"`
	Evidence    Evidence `gorm:"type:json" json:"evidence"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type MenuCheckFilter struct {
	SiteId *int
	Year   *int
	Limit  *int
}

func GetMenuCheck(ctx context.Context, id int) (*MenuCheck, error) {
	return utils.FetchModel[MenuCheck](ctx, id, "Site")
}

func FindMenuCheckForPeriod(ctx context.Context, siteId, month, year int) (*MenuCheck, error) {
	db := config.GetDB()
	var check MenuCheck
	err := db.WithContext(ctx).
		Where("site_id = ? AND month = ? AND year = ?", siteId, month, year).
		Take(&check).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &check, nil
}

func ListMenuChecks(ctx context.Context, filter MenuCheckFilter) ([]*MenuCheck, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Site").Order("checked_at DESC, id DESC")

	if filter.SiteId != nil {
		dbCtx = dbCtx.Where("site_id = ?", *filter.SiteId)
	}
	if filter.Year != nil {
		dbCtx = dbCtx.Where("year = ?", *filter.Year)
	}
	if filter.Limit != nil && *filter.Limit > 0 {
		dbCtx = dbCtx.Limit(*filter.Limit)
	}

	var checks []*MenuCheck
	err := dbCtx.Find(&checks).Error
	if err != nil {
		return nil, err
	}
	return checks, nil
}

// GetCheckResults returns a check's results in rule order (the order they were
// written in). The sequence is stable across identical re-runs.
func GetCheckResults(ctx context.Context, checkId int) ([]*CheckResult, error) {
	if err := utils.ValidateResourceId[MenuCheck](ctx, checkId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*CheckResult
	err := db.WithContext(ctx).
		Where("check_id = ?", checkId).
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetMenuDays returns the parsed days of a site's month, date ascending.
func GetMenuDays(ctx context.Context, siteId, month, year int) ([]*MenuDay, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	db := config.GetDB()
	var days []*MenuDay
	err := db.WithContext(ctx).
		Where("site_id = ? AND date >= ? AND date < ?", siteId, start, end).
		Order("date ASC").
		Find(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}

// ReplaceMenuDays swaps a site's parsed days for a month in one transaction.
// Re-uploading a menu fully replaces the previous parse.
func ReplaceMenuDays(ctx context.Context, siteId, month, year int, days []*MenuDay) error {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("site_id = ? AND date >= ? AND date < ?", siteId, start, end).
			Delete(&MenuDay{}).Error; err != nil {
			return err
		}
		if len(days) == 0 {
			return nil
		}
		return tx.Create(&days).Error
	})
}

type ComplianceOverview struct {
	TotalChecks      int64 `json:"total_checks"`
	DishesAbove      int64 `json:"dishes_above"`
	DishesUnder      int64 `json:"dishes_under"`
	DishesEven       int64 `json:"dishes_even"`
	CriticalFindings int64 `json:"critical_findings"`
	Warnings         int64 `json:"warnings"`
}

// GetComplianceOverview sums the stored check counters across all sites.
func GetComplianceOverview(ctx context.Context) (*ComplianceOverview, error) {
	db := config.GetDB()
	var overview ComplianceOverview
	err := db.WithContext(ctx).Model(&MenuCheck{}).
		Select(
			"COUNT(id) AS total_checks, " +
				"COALESCE(SUM(dishes_above), 0) AS dishes_above, " +
				"COALESCE(SUM(dishes_under), 0) AS dishes_under, " +
				"COALESCE(SUM(dishes_even), 0) AS dishes_even, " +
				"COALESCE(SUM(critical_findings), 0) AS critical_findings, " +
				"COALESCE(SUM(warnings), 0) AS warnings").
		Scan(&overview).Error
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

type DishExtraction struct {
	TotalDishesInMenu int `json:"total_dishes_in_menu"`
	NewDishesAdded    int `json:"new_dishes_added"`
	AlreadyExisted    int `json:"already_existed"`
}

// RegisterMenuDishes upserts every unique dish served in the days into the
// catalog, so unknown dishes surface through the unassigned filter. Existing
// entries are left untouched.
func RegisterMenuDishes(ctx context.Context, days []*MenuDay, sourceCheckId *int) (*DishExtraction, error) {
	unique := map[string]string{} // normalized -> first raw spelling
	var order []string
	for _, day := range days {
		for _, name := range day.Items.DishNames() {
			normalized := utils.NormalizeDishName(name)
			if normalized == "" {
				continue
			}
			if _, seen := unique[normalized]; !seen {
				unique[normalized] = strings.TrimSpace(name)
				order = append(order, normalized)
			}
		}
	}
	sort.Strings(order)

	extraction := DishExtraction{TotalDishesInMenu: len(order)}
	for _, normalized := range order {
		_, created, err := UpsertDishCatalogEntry(ctx, unique[normalized], normalized, sourceCheckId)
		if err != nil {
			return nil, err
		}
		if created {
			extraction.NewDishesAdded++
		}
	}
	extraction.AlreadyExisted = extraction.TotalDishesInMenu - extraction.NewDishesAdded
	return &extraction, nil
}

// ExtractDishesFromCheck backfills the catalog with every unique dish name
// found in a check's parsed menu days.
func ExtractDishesFromCheck(ctx context.Context, checkId int) (*DishExtraction, error) {
	check, err := GetMenuCheck(ctx, checkId)
	if err != nil {
		return nil, err
	}

	days, err := GetMenuDays(ctx, check.SiteId, check.Month, check.Year)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, utils.ErrorNoMenuData
	}

	return RegisterMenuDishes(ctx, days, &check.ID)
}
