package vaccines

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
)

type VaccineDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VaccinationDTO is a vaccination record with its vaccine name resolved.
type VaccinationDTO struct {
	ID          uuid.UUID `json:"id"`
	PetID       uuid.UUID `json:"pet_id"`
	PetName     string    `json:"pet_name,omitempty"`
	VaccineID   uuid.UUID `json:"vaccine_id"`
	VaccineName string    `json:"vaccine_name"`
	Date        string    `json:"date"`
	Remarks     string    `json:"remarks"`
	CreatedAt   time.Time `json:"created_at"`
}

type VaccineInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type VaccinationInput struct {
	PetID     *uuid.UUID `json:"pet_id"`
	VaccineID *uuid.UUID `json:"vaccine_id"`
	Date      *string    `json:"date"`
	Remarks   *string    `json:"remarks"`
}

type ListVaccinationsInput struct {
	PetID     *uuid.UUID
	VaccineID *uuid.UUID
	OwnerID   *uuid.UUID
}

// DateLayout is the wire format of vaccination dates.
const DateLayout = "2006-01-02"

func VaccineFromModel(v *models.Vaccine) VaccineDTO {
	return VaccineDTO{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func VaccinationFromModel(v *models.Vaccinated) VaccinationDTO {
	dto := VaccinationDTO{
		ID:        v.ID,
		PetID:     v.PetID,
		VaccineID: v.VaccineID,
		Date:      v.Date.Format(DateLayout),
		Remarks:   v.Remarks,
		CreatedAt: v.CreatedAt,
	}
	if v.Vaccine != nil {
		dto.VaccineName = v.Vaccine.Name
	}
	if v.Pet != nil {
		dto.PetName = v.Pet.Name
	}
	return dto
}

// VaccinationsFromModels maps a slice, preserving order.
func VaccinationsFromModels(rows []models.Vaccinated) []VaccinationDTO {
	out := make([]VaccinationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, VaccinationFromModel(&rows[i]))
	}
	return out
}
