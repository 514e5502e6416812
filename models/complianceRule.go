package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// MatchCriteria is the closed matching payload of a rule. A rule matches a
// day's menu through (in precedence order) explicit catalog links, the dish
// category, then keyword matches against normalized dish names.
type MatchCriteria struct {
	Keywords     []string     `json:"keywords,omitempty"`
	DishCategory DishCategory `json:"dish_category,omitempty"`
}

func (m MatchCriteria) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MatchCriteria) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = MatchCriteria{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into MatchCriteria", value)
}

// ComplianceRule is a configured expectation about how often a dish or dish
// category must appear over a period. Rules are immutable during a check run;
// the evaluator works on a snapshot loaded up front.
type ComplianceRule struct {
	ID            int           `gorm:"primary_key" json:"id"`
	Name          string        `gorm:"size:200;not null;uniqueIndex" json:"name" binding:"required"`
	Description   *string       `gorm:"type:text" json:"description"`
	Category      *string       `gorm:"size:100" json:"category"`
	RuleType      RuleType      `gorm:"size:30;not null" json:"rule_type"`
	MatchCriteria MatchCriteria `gorm:"type:json" json:"match_criteria"`
	ExpectedCount int           `gorm:"not null" json:"expected_count"`
	Period        RulePeriod    `gorm:"size:20;not null;default:per_month" json:"period"`
	Priority      int           `gorm:"not null;default:1" json:"priority"`
	IsActive      *bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewComplianceRule struct {
	Name          string        `json:"name" binding:"required" validate:"required,max=200"`
	Description   *string       `json:"description"`
	Category      *string       `json:"category"`
	RuleType      RuleType      `json:"rule_type" binding:"required"`
	MatchCriteria MatchCriteria `json:"match_criteria"`
	ExpectedCount int           `json:"expected_count" binding:"required" validate:"gte=1"`
	Period        RulePeriod    `json:"period"`
	Priority      int           `json:"priority"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewComplianceRule) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[ComplianceRule](ctx, id); err != nil {
			return err
		}
	}
	if err := validate.Struct(input); err != nil {
		return err
	}
	if !input.RuleType.Valid() {
		return errors.New("invalid rule type")
	}
	if input.Period == "" {
		input.Period = RulePeriodPerMonth
	}
	if !input.Period.Valid() {
		return errors.New("invalid rule period")
	}
	if input.MatchCriteria.DishCategory != "" && !input.MatchCriteria.DishCategory.Valid() {
		return errors.New("invalid dish category in match criteria")
	}
	// name
	if err := utils.ValidateUnique[ComplianceRule](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateComplianceRule(ctx context.Context, input *NewComplianceRule) (*ComplianceRule, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority <= 0 {
		priority = 1
	}

	rule := ComplianceRule{
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		RuleType:      input.RuleType,
		MatchCriteria: input.MatchCriteria,
		ExpectedCount: input.ExpectedCount,
		Period:        input.Period,
		Priority:      priority,
		IsActive:      utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&rule).Error
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func UpdateComplianceRule(ctx context.Context, id int, input *NewComplianceRule) (*ComplianceRule, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	rule, err := utils.FetchModel[ComplianceRule](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(rule).Updates(map[string]interface{}{
		"Name":          input.Name,
		"Description":   input.Description,
		"Category":      input.Category,
		"RuleType":      input.RuleType,
		"MatchCriteria": input.MatchCriteria,
		"ExpectedCount": input.ExpectedCount,
		"Period":        input.Period,
		"Priority":      input.Priority,
	}).Error
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// DeactivateComplianceRule soft-disables a rule; subsequent runs skip it but
// history and catalog links stay intact.
func DeactivateComplianceRule(ctx context.Context, id int) (*ComplianceRule, error) {

	rule, err := utils.FetchModel[ComplianceRule](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(rule).Update("IsActive", utils.NewFalse()).Error
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// PurgeComplianceRule hard-deletes a rule. Catalog entries keep existing; their
// rule references are nulled out in the same transaction so no dangling
// reference is ever visible.
func PurgeComplianceRule(ctx context.Context, id int) (*ComplianceRule, error) {

	rule, err := utils.FetchModel[ComplianceRule](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&DishCatalogEntry{}).
			Where("compliance_rule_id = ?", id).
			Update("compliance_rule_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&ComplianceRule{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func GetComplianceRule(ctx context.Context, id int) (*ComplianceRule, error) {
	return utils.FetchModel[ComplianceRule](ctx, id)
}

func GetAllComplianceRules(ctx context.Context, activeOnly bool) ([]*ComplianceRule, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Order("priority ASC, name ASC")
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	var rules []*ComplianceRule
	err := dbCtx.Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
