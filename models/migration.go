package models

import (
	"log"

	"github.com/foodhouse/menucheck_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Site{},
		&ComplianceRule{},
		&DishCatalogEntry{},
		&MenuDay{},
		&MenuCheck{}, &CheckResult{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
