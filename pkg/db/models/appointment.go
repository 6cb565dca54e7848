package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
)

// Appointment is the central workflow entity.
type Appointment struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	User          *User                   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	PetID         uuid.UUID               `gorm:"type:uuid;not null;index"`
	Pet           *Pet                    `gorm:"foreignKey:PetID;constraint:OnDelete:CASCADE"`
	Purpose       string                  `gorm:"column:purpose;not null"`
	Remarks       *string                 `gorm:"column:remarks"`
	Date          time.Time               `gorm:"column:date;not null;index"`
	Status        enums.AppointmentStatus `gorm:"column:status;type:text;not null;index"`
	AssignedVetID *uuid.UUID              `gorm:"type:uuid;index"`
	AssignedVet   *User                   `gorm:"foreignKey:AssignedVetID;constraint:OnDelete:SET NULL"`
	VetNote       *string                 `gorm:"column:vet_note"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Appointment) TableName() string { return "appointments" }

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// Treatment is one service rendered during an appointment.
type Treatment struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	AppointmentID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Appointment   *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`
	ServiceID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	Service       *Service     `gorm:"foreignKey:ServiceID;constraint:OnDelete:RESTRICT"`
	VaccineID     *uuid.UUID   `gorm:"type:uuid"`
	Vaccine       *Vaccine     `gorm:"foreignKey:VaccineID;constraint:OnDelete:SET NULL"`
	Description   string       `gorm:"column:description;not null"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (Treatment) TableName() string { return "treatments" }

func (t *Treatment) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}
