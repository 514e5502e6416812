package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/utils"
	"gorm.io/gorm/clause"
)

const dishCatalogStatsCacheKey = "DishCatalogStats"

// DishCatalogEntry maps a canonical dish name to an optional category and an
// optional compliance rule. Uniqueness is enforced at the normalized-name
// level so concurrent runs seeing the same dish cannot create duplicates.
// Entries are never auto-deleted; rule deletion only nulls the reference.
type DishCatalogEntry struct {
	ID               int             `gorm:"primary_key" json:"id"`
	DishName         string          `gorm:"size:255;not null" json:"dish_name"`
	NormalizedName   string          `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Category         *DishCategory   `gorm:"size:50" json:"category"`
	ComplianceRuleId *int            `json:"compliance_rule_id"`
	ComplianceRule   *ComplianceRule `gorm:"foreignKey:ComplianceRuleId" json:"-"`
	Approved         *bool           `gorm:"not null;default:false" json:"approved"`
	SourceCheckId    *int            `json:"source_check_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDishCatalogEntry struct {
	DishName         string        `json:"dish_name" binding:"required"`
	Category         *DishCategory `json:"category"`
	ComplianceRuleId *int          `json:"compliance_rule_id"`
}

// DishCatalogUpdate is a partial update. An omitted field keeps the stored
// value; category and rule link sent as explicit null get cleared.
type DishCatalogUpdate struct {
	Category         utils.Optional[DishCategory] `json:"category"`
	ComplianceRuleId utils.Optional[int]          `json:"compliance_rule_id"`
	Approved         *bool                        `json:"approved"`
}

type DishCatalogFilter struct {
	Category   *DishCategory
	Unassigned bool
	Search     string
}

type DishCatalogStats struct {
	Total         int64            `json:"total"`
	Categorized   int64            `json:"categorized"`
	Uncategorized int64            `json:"uncategorized"`
	RuleLinked    int64            `json:"rule_linked"`
	Unlinked      int64            `json:"unlinked"`
	ByCategory    map[string]int64 `json:"by_category"`
}

func validateDishAssignment(ctx context.Context, category *DishCategory, ruleId *int) error {
	if category != nil && !category.Valid() {
		return errors.New("invalid dish category")
	}
	// A rule reference must point at an existing rule; dangling references are
	// a data-integrity error, never silently accepted.
	if ruleId != nil {
		if err := utils.ValidateResourceId[ComplianceRule](ctx, *ruleId); err != nil {
			return errors.New("compliance rule does not exist")
		}
	}
	return nil
}

func CreateDishCatalogEntry(ctx context.Context, input *NewDishCatalogEntry) (*DishCatalogEntry, error) {

	name := strings.TrimSpace(input.DishName)
	if name == "" {
		return nil, errors.New("dish name is required")
	}
	if err := validateDishAssignment(ctx, input.Category, input.ComplianceRuleId); err != nil {
		return nil, err
	}

	normalized := utils.NormalizeDishName(name)
	if err := utils.ValidateUnique[DishCatalogEntry](ctx, "normalized_name", normalized, 0); err != nil {
		return nil, errors.New("dish already exists in catalog")
	}

	entry := DishCatalogEntry{
		DishName:         name,
		NormalizedName:   normalized,
		Category:         input.Category,
		ComplianceRuleId: input.ComplianceRuleId,
		Approved:         utils.NewFalse(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&entry).Error
	if err != nil {
		return nil, err
	}

	_ = config.DeleteRedisKeys(dishCatalogStatsCacheKey)
	return &entry, nil
}

// UpsertDishCatalogEntry is the matcher's insert-if-absent path. It is safe
// under concurrent runs referencing the same dish name: the unique index on
// normalized_name resolves the race, not a read-then-write.
// Returns the surviving entry and whether this call created it.
func UpsertDishCatalogEntry(ctx context.Context, dishName, normalizedName string, sourceCheckId *int) (*DishCatalogEntry, bool, error) {

	db := config.GetDB()

	entry := DishCatalogEntry{
		DishName:       strings.TrimSpace(dishName),
		NormalizedName: normalizedName,
		Approved:       utils.NewFalse(),
		SourceCheckId:  sourceCheckId,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoNothing: true,
		}).
		Create(&entry)
	if res.Error != nil {
		return nil, false, res.Error
	}

	created := res.RowsAffected > 0
	if created {
		_ = config.DeleteRedisKeys(dishCatalogStatsCacheKey)
		return &entry, true, nil
	}

	// Lost the race or the entry predates this run; read the survivor.
	var existing DishCatalogEntry
	err := db.WithContext(ctx).
		Where("normalized_name = ?", normalizedName).
		Take(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func GetDishCatalogEntry(ctx context.Context, id int) (*DishCatalogEntry, error) {
	return utils.FetchModel[DishCatalogEntry](ctx, id, "ComplianceRule")
}

func ListDishCatalog(ctx context.Context, filter DishCatalogFilter) ([]*DishCatalogEntry, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("ComplianceRule").Order("dish_name ASC")

	if filter.Category != nil {
		dbCtx = dbCtx.Where("category = ?", *filter.Category)
	}
	if filter.Unassigned {
		dbCtx = dbCtx.Where("category IS NULL OR compliance_rule_id IS NULL")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		dbCtx = dbCtx.Where("dish_name LIKE ?", "%"+search+"%")
	}

	var entries []*DishCatalogEntry
	err := dbCtx.Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func UpdateDishCatalogEntry(ctx context.Context, id int, input *DishCatalogUpdate) (*DishCatalogEntry, error) {

	if err := validateDishAssignment(ctx, input.Category.Value, input.ComplianceRuleId.Value); err != nil {
		return nil, err
	}

	entry, err := utils.FetchModel[DishCatalogEntry](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Category.Set {
		updates["Category"] = input.Category.Value
	}
	if input.ComplianceRuleId.Set {
		updates["ComplianceRuleId"] = input.ComplianceRuleId.Value
	}
	if input.Approved != nil {
		updates["Approved"] = *input.Approved
	}
	if len(updates) == 0 {
		return entry, nil
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(entry).Updates(updates).Error
	if err != nil {
		return nil, err
	}

	_ = config.DeleteRedisKeys(dishCatalogStatsCacheKey)
	return GetDishCatalogEntry(ctx, id)
}

func DeleteDishCatalogEntry(ctx context.Context, id int) (*DishCatalogEntry, error) {

	entry, err := utils.FetchModel[DishCatalogEntry](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(entry).Error
	if err != nil {
		return nil, err
	}

	_ = config.DeleteRedisKeys(dishCatalogStatsCacheKey)
	return entry, nil
}

// GetDishCatalogStats aggregates catalog coverage for the dashboard, cached in
// Redis until the next catalog write.
func GetDishCatalogStats(ctx context.Context) (*DishCatalogStats, error) {

	var cached DishCatalogStats
	if hit, err := config.GetRedisObject(dishCatalogStatsCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	db := config.GetDB()
	stats := DishCatalogStats{ByCategory: map[string]int64{}}

	if err := db.WithContext(ctx).Model(&DishCatalogEntry{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&DishCatalogEntry{}).
		Where("category IS NOT NULL").Count(&stats.Categorized).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&DishCatalogEntry{}).
		Where("compliance_rule_id IS NOT NULL").Count(&stats.RuleLinked).Error; err != nil {
		return nil, err
	}
	stats.Uncategorized = stats.Total - stats.Categorized
	stats.Unlinked = stats.Total - stats.RuleLinked

	type catCount struct {
		Category *string
		Count    int64
	}
	var rows []catCount
	if err := db.WithContext(ctx).Model(&DishCatalogEntry{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := "unassigned"
		if row.Category != nil && *row.Category != "" {
			key = *row.Category
		}
		stats.ByCategory[key] = row.Count
	}

	_ = config.SetRedisObject(dishCatalogStatsCacheKey, &stats, 10*time.Minute)
	return &stats, nil
}
