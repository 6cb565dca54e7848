package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule is a vet's recurring weekly working window.
type Schedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	VetID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Vet       *User     `gorm:"foreignKey:VetID;constraint:OnDelete:CASCADE"`
	Weekday   int       `gorm:"column:weekday;not null"`
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Schedule) TableName() string { return "schedules" }

func (s *Schedule) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// Holiday is a day a vet is unavailable.
type Holiday struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	VetID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Vet       *User     `gorm:"foreignKey:VetID;constraint:OnDelete:CASCADE"`
	Date      time.Time `gorm:"column:date;type:date;not null"`
	Reason    string    `gorm:"column:reason;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Holiday) TableName() string { return "holidays" }

func (h *Holiday) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
