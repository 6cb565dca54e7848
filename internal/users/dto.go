package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	ImageURL    *string    `json:"image_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PetSummaryDTO is the compact pet shape embedded in user detail.
type PetSummaryDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Gender         enums.PetGender `json:"gender"`
	Breed          string          `json:"breed"`
	NeuteredStatus bool            `json:"neutered_status"`
	Age            *int            `json:"age"`
	ImageURL       *string         `json:"image_url,omitempty"`
}

// UserDetailDTO adds the user's pets.
type UserDetailDTO struct {
	UserDTO
	Pets      []PetSummaryDTO `json:"pets"`
	TotalPets int             `json:"total_pets"`
}

// CreateUserInput carries a new account. Role is ignored for public
// registration.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      enums.Role
	IsActive  *bool
	Image     *images.Upload
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *enums.Role
	IsActive  *bool
}

// ListUsersInput filters the staff user listing.
type ListUsersInput struct {
	Role   *enums.Role
	Active *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func petSummary(p models.Pet, now time.Time) PetSummaryDTO {
	return PetSummaryDTO{
		ID:             p.ID,
		Name:           p.Name,
		Gender:         p.Gender,
		Breed:          p.Breed,
		NeuteredStatus: p.NeuteredStatus,
		Age:            p.AgeAt(now),
	}
}
