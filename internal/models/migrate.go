package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the AAA core tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ServicePlan{},
		&PlanAttribute{},
		&Subscriber{},
		&SubscriberAttribute{},
		&NasDevice{},
		&SpecialAccountingRule{},
		&RadAcct{},
		&RadPostAuth{},
	)
}
