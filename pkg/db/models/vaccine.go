package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vaccine is a catalog entry. Names are unique regardless of case.
type Vaccine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vaccine) TableName() string { return "vaccines" }

func (v *Vaccine) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// Vaccinated records that a pet received a vaccine on a date.
type Vaccinated struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PetID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Pet       *Pet      `gorm:"foreignKey:PetID;constraint:OnDelete:CASCADE"`
	VaccineID uuid.UUID `gorm:"type:uuid;not null;index"`
	Vaccine   *Vaccine  `gorm:"foreignKey:VaccineID;constraint:OnDelete:RESTRICT"`
	Date      time.Time `gorm:"column:date;type:date;not null"`
	Remarks   string    `gorm:"column:remarks;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vaccinated) TableName() string { return "vaccinations" }

func (v *Vaccinated) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
