package models

import (
	"context"
	"time"

	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/utils"
)

// Site is a catering location whose monthly menus get checked.
type Site struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSite struct {
	Name string `json:"name" binding:"required"`
}

func CreateSite(ctx context.Context, input *NewSite) (*Site, error) {
	if err := utils.ValidateUnique[Site](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	site := Site{
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&site).Error
	if err != nil {
		return nil, err
	}

	return &site, nil
}

func GetSite(ctx context.Context, id int) (*Site, error) {
	return utils.FetchModel[Site](ctx, id)
}

func GetAllSites(ctx context.Context) ([]*Site, error) {
	return utils.FetchAllModels[Site](ctx)
}
