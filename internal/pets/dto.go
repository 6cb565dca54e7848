package pets

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
)

// PetDTO is the public pet shape with derived age.
type PetDTO struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"owner_id"`
	OwnerName         string          `json:"owner_name,omitempty"`
	Name              string          `json:"name"`
	Gender            enums.PetGender `json:"gender"`
	Breed             string          `json:"breed"`
	Color             string          `json:"color"`
	Allergies         string          `json:"allergies"`
	Marks             string          `json:"marks"`
	ChronicConditions string          `json:"chronic_conditions"`
	NeuteredStatus    bool            `json:"neutered_status"`
	BirthDate         *string         `json:"birth_date"`
	Age               *int            `json:"age"`
	ImageURL          *string         `json:"image_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PetDetailDTO embeds the vaccination history, newest first.
type PetDetailDTO struct {
	PetDTO
	Vaccinations      []vaccines.VaccinationDTO `json:"vaccinations"`
	TotalVaccinations int                       `json:"total_vaccinations"`
}

// PetInput is shared by create and partial update; nil fields are absent.
type PetInput struct {
	UserID            *uuid.UUID
	Name              *string
	Gender            *enums.PetGender
	Breed             *string
	Color             *string
	Allergies         *string
	Marks             *string
	ChronicConditions *string
	NeuteredStatus    *bool
	BirthDate         *string
	Image             *images.Upload
}

type ListPetsInput struct {
	OwnerID *uuid.UUID
}

const birthDateLayout = "2006-01-02"

// FromModel maps a pet; the image URL is resolved by the caller.
func FromModel(p *models.Pet, now time.Time) PetDTO {
	dto := PetDTO{
		ID:                p.ID,
		OwnerID:           p.UserID,
		Name:              p.Name,
		Gender:            p.Gender,
		Breed:             p.Breed,
		Color:             p.Color,
		Allergies:         p.Allergies,
		Marks:             p.Marks,
		ChronicConditions: p.ChronicConditions,
		NeuteredStatus:    p.NeuteredStatus,
		Age:               p.AgeAt(now),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.BirthDate != nil {
		formatted := p.BirthDate.Format(birthDateLayout)
		dto.BirthDate = &formatted
	}
	if p.User != nil {
		dto.OwnerName = p.User.FullName()
	}
	return dto
}
