package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
)

// Pet belongs to exactly one user and is removed with them.
type Pet struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	User              *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Name              string          `gorm:"column:name;not null"`
	Gender            enums.PetGender `gorm:"column:gender;type:text;not null"`
	Breed             string          `gorm:"column:breed;not null;default:''"`
	Color             string          `gorm:"column:color;not null;default:''"`
	Allergies         string          `gorm:"column:allergies;not null;default:''"`
	Marks             string          `gorm:"column:marks;not null;default:''"`
	ChronicConditions string          `gorm:"column:chronic_conditions;not null;default:''"`
	NeuteredStatus    bool            `gorm:"column:neutered_status;not null;default:false"`
	BirthDate         *time.Time      `gorm:"column:birth_date;type:date"`
	ImageKey          *string         `gorm:"column:image_key"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Pet) TableName() string { return "pets" }

func (p *Pet) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// AgeAt returns the pet's age in whole years at now, or nil without a birth date.
func (p Pet) AgeAt(now time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	birth := p.BirthDate.UTC()
	now = now.UTC()
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}
