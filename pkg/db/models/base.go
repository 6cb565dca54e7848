package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order. Used by sqlite
// auto-migration and tests; postgres schemas come from goose migrations.
func All() []any {
	return []any{
		&User{},
		&Pet{},
		&Vaccine{},
		&Vaccinated{},
		&Service{},
		&Appointment{},
		&Treatment{},
		&Schedule{},
		&Holiday{},
		&JobExecution{},
	}
}

// AutoMigrate creates or updates every table known to the models package.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
