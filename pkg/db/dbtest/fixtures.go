package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/stretchr/testify/require"
)

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, client *db.Client, role enums.Role) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s-%s@petcare.test", role, id.String()[:8]),
		PasswordHash: "not-a-real-hash",
		FirstName:    string(role),
		LastName:     id.String()[:8],
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, client.DB().Create(user).Error)
	return user
}

// CreatePet inserts a pet owned by ownerID.
func CreatePet(t testing.TB, client *db.Client, ownerID uuid.UUID) *models.Pet {
	t.Helper()
	birth := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	pet := &models.Pet{
		UserID:    ownerID,
		Name:      "Rex",
		Gender:    enums.PetGenderMale,
		Breed:     "Beagle",
		BirthDate: &birth,
	}
	require.NoError(t, client.DB().Omit("User").Create(pet).Error)
	return pet
}

// CreateVaccine inserts a catalog vaccine.
func CreateVaccine(t testing.TB, client *db.Client, name string) *models.Vaccine {
	t.Helper()
	vaccine := &models.Vaccine{Name: name, Description: name + " vaccine"}
	require.NoError(t, client.DB().Create(vaccine).Error)
	return vaccine
}

// CreateService inserts a service, or returns the existing one with title.
func CreateService(t testing.TB, client *db.Client, title string) *models.Service {
	t.Helper()
	var existing models.Service
	if err := client.DB().Where("title = ?", title).First(&existing).Error; err == nil {
		return &existing
	}
	service := &models.Service{Title: title}
	require.NoError(t, client.DB().Create(service).Error)
	return service
}

// CreateAppointment inserts an appointment in status for pet and its owner.
func CreateAppointment(t testing.TB, client *db.Client, pet *models.Pet, status enums.AppointmentStatus, vetID *uuid.UUID, date time.Time) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		UserID:        pet.UserID,
		PetID:         pet.ID,
		Purpose:       "Annual checkup",
		Date:          date,
		Status:        status,
		AssignedVetID: vetID,
	}
	require.NoError(t, client.DB().Omit("User", "Pet", "AssignedVet").Create(appt).Error)
	return appt
}
