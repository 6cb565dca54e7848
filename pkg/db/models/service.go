package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Titles of the seeded services that drive treatment side effects.
const (
	ServiceTitleVaccination = "getVaccine"
	ServiceTitleNeutering   = "Neutering/Spaying"
	ServiceTitleOthers      = "Others"
)

// MainServiceTitles lists the protected, seeded services.
var MainServiceTitles = []string{
	ServiceTitleVaccination,
	ServiceTitleNeutering,
	ServiceTitleOthers,
}

// Service is an offered clinic service type.
type Service struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null;uniqueIndex:services_title_key"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Service) TableName() string { return "services" }

func (s *Service) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// IsMain reports whether the service is one of the seeded main services.
func (s Service) IsMain() bool {
	for _, title := range MainServiceTitles {
		if strings.EqualFold(s.Title, title) {
			return true
		}
	}
	return false
}

// IsVaccination reports whether treatments of this service administer a vaccine.
func (s Service) IsVaccination() bool {
	return strings.EqualFold(strings.TrimSpace(s.Title), ServiceTitleVaccination)
}

// IsNeutering reports whether treatments of this service neuter the pet.
func (s Service) IsNeutering() bool {
	return strings.EqualFold(strings.TrimSpace(s.Title), ServiceTitleNeutering)
}
