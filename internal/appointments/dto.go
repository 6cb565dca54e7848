package appointments

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/types"
)

// AppointmentDTO is the list shape of an appointment.
type AppointmentDTO struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user"`
	OwnerName       string                  `json:"owner_name,omitempty"`
	PetID           uuid.UUID               `json:"pet"`
	PetName         string                  `json:"pet_name,omitempty"`
	Purpose         string                  `json:"purpose"`
	Remarks         *string                 `json:"remarks"`
	Date            time.Time               `json:"date"`
	Status          enums.AppointmentStatus `json:"status"`
	AssignedVetID   *uuid.UUID              `json:"assigned_vet"`
	AssignedVetName string                  `json:"assigned_vet_name,omitempty"`
	VetNote         *string                 `json:"vet_note"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// TreatmentDTO is a recorded treatment with service and vaccine resolved.
type TreatmentDTO struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment"`
	ServiceID     uuid.UUID  `json:"service"`
	ServiceTitle  string     `json:"service_title"`
	VaccineID     *uuid.UUID `json:"vaccine"`
	VaccineName   *string    `json:"vaccine_name"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AppointmentDetailDTO embeds everything a vet needs during the visit.
type AppointmentDetailDTO struct {
	AppointmentDTO
	Pet          pets.PetDTO               `json:"pet_detail"`
	Owner        *users.UserDTO            `json:"owner"`
	AssignedVet  *users.UserDTO            `json:"assigned_vet_detail"`
	Vaccinations []vaccines.VaccinationDTO `json:"vaccinations"`
	Treatments   []TreatmentDTO            `json:"treatments"`
}

// CreateInput books an appointment. UserID and AssignedVet are only honoured
// for staff callers.
type CreateInput struct {
	UserID      *uuid.UUID
	PetID       *uuid.UUID
	Purpose     *string
	Remarks     *string
	Date        *time.Time
	AssignedVet types.NullableUUID
}

// EditInput is a partial edit; nil fields are left untouched.
type EditInput struct {
	UserID      *uuid.UUID
	PetID       *uuid.UUID
	Purpose     *string
	Remarks     *string
	Date        *time.Time
	Status      *enums.AppointmentStatus
	AssignedVet types.NullableUUID
}

type StatusInput struct {
	Status      *enums.AppointmentStatus
	AssignedVet types.NullableUUID
}

type ListInput struct {
	Status *enums.AppointmentStatus
}

func FromModel(a *models.Appointment) AppointmentDTO {
	dto := AppointmentDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		PetID:         a.PetID,
		Purpose:       a.Purpose,
		Remarks:       a.Remarks,
		Date:          a.Date,
		Status:        a.Status,
		AssignedVetID: a.AssignedVetID,
		VetNote:       a.VetNote,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.User != nil {
		dto.OwnerName = a.User.FullName()
	}
	if a.Pet != nil {
		dto.PetName = a.Pet.Name
	}
	if a.AssignedVet != nil {
		dto.AssignedVetName = a.AssignedVet.FullName()
	}
	return dto
}

func TreatmentFromModel(t *models.Treatment) TreatmentDTO {
	dto := TreatmentDTO{
		ID:            t.ID,
		AppointmentID: t.AppointmentID,
		ServiceID:     t.ServiceID,
		VaccineID:     t.VaccineID,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
	if t.Service != nil {
		dto.ServiceTitle = t.Service.Title
	}
	if t.Vaccine != nil {
		name := t.Vaccine.Name
		dto.VaccineName = &name
	}
	return dto
}

func TreatmentsFromModels(rows []models.Treatment) []TreatmentDTO {
	out := make([]TreatmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, TreatmentFromModel(&rows[i]))
	}
	return out
}
