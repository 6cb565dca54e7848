package pets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/images/imagestest"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/dbtest"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store images.Store) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(ServiceParams{DB: client, Images: store, Clock: func() time.Time { return testNow }})
	require.NoError(t, err)
	return svc, client
}

func ptr[T any](v T) *T { return &v }

func actorFor(u *models.User) identity.Actor { return identity.NewActor(u.ID, u.Role) }

func TestCreateByRole(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	ownerUser := dbtest.CreateUser(t, client, enums.RoleClient)
	owner := actorFor(ownerUser)
	staff := actorFor(dbtest.CreateUser(t, client, enums.RoleStaff))
	vet := actorFor(dbtest.CreateUser(t, client, enums.RoleVet))
	other := uuid.New()

	input := PetInput{
		UserID:         &other,
		Name:           ptr("Milo"),
		Gender:         ptr(enums.PetGenderMale),
		BirthDate:      ptr("2021-07-01"),
		NeuteredStatus: ptr(true),
		Image:          &images.Upload{Data: []byte("img"), ContentType: "image/png", Extension: ".png"},
	}
	created, err := svc.Create(ctx, owner, input)
	require.NoError(t, err)
	assert.Equal(t, ownerUser.ID, created.OwnerID)
	assert.Equal(t, 3, *created.Age)
	assert.True(t, created.NeuteredStatus)
	require.NotNil(t, created.ImageURL)
	assert.Len(t, store.Objects, 1)

	_, err = svc.Create(ctx, vet, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(ctx, staff, PetInput{Name: ptr("Luna"), Gender: ptr(enums.PetGenderFemale)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "is required", pkgerrors.As(err).Details().(map[string]string)["user_id"])

	_, err = svc.Create(ctx, staff, PetInput{UserID: &other, Name: ptr("Luna"), Gender: ptr(enums.PetGenderFemale)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "user not found", pkgerrors.As(err).Details().(map[string]string)["user_id"])

	byStaff, err := svc.Create(ctx, staff, PetInput{UserID: &ownerUser.ID, Name: ptr("Luna"), Gender: ptr(enums.PetGenderFemale)})
	require.NoError(t, err)
	assert.False(t, byStaff.NeuteredStatus)
	assert.Nil(t, byStaff.Age)
}

func TestCreateValidation(t *testing.T) {
	svc, client := newTestService(t, nil)
	owner := actorFor(dbtest.CreateUser(t, client, enums.RoleClient))

	_, err := svc.Create(context.Background(), owner, PetInput{Gender: ptr(enums.PetGender("Other")), BirthDate: ptr("2030-01-01")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "is required", details["name"])
	assert.Contains(t, details, "gender")
	assert.Equal(t, "may not be in the future", details["birth_date"])
}

func TestCreateImageFailureIsNonFatal(t *testing.T) {
	store := imagestest.New()
	store.UploadErr = imagestest.ErrUnavailable
	svc, client := newTestService(t, store)
	owner := actorFor(dbtest.CreateUser(t, client, enums.RoleClient))

	created, err := svc.Create(context.Background(), owner, PetInput{
		Name:   ptr("Milo"),
		Gender: ptr(enums.PetGenderMale),
		Image:  &images.Upload{Data: []byte("img"), ContentType: "image/png", Extension: ".png"},
	})
	require.NoError(t, err)
	assert.Nil(t, created.ImageURL)
}

func TestListAndGetVisibility(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	ownerUser := dbtest.CreateUser(t, client, enums.RoleClient)
	otherUser := dbtest.CreateUser(t, client, enums.RoleClient)
	vet := actorFor(dbtest.CreateUser(t, client, enums.RoleVet))
	pet := dbtest.CreatePet(t, client, ownerUser.ID)
	dbtest.CreatePet(t, client, otherUser.ID)

	mine, err := svc.List(ctx, actorFor(ownerUser), ListPetsInput{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pet.ID, mine[0].ID)

	_, err = svc.List(ctx, actorFor(ownerUser), ListPetsInput{OwnerID: &otherUser.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	all, err := svc.List(ctx, vet, ListPetsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.List(ctx, vet, ListPetsInput{OwnerID: &otherUser.ID})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	_, err = svc.Get(ctx, actorFor(otherUser), pet.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	vaccine := dbtest.CreateVaccine(t, client, "Rabies")
	conn := client.DB()
	require.NoError(t, conn.Create(&models.Vaccinated{PetID: pet.ID, VaccineID: vaccine.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, conn.Create(&models.Vaccinated{PetID: pet.ID, VaccineID: vaccine.ID, Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}).Error)

	detail, err := svc.Get(ctx, vet, pet.ID)
	require.NoError(t, err)
	require.Equal(t, 2, detail.TotalVaccinations)
	assert.Equal(t, "2025-01-01", detail.Vaccinations[0].Date)
	assert.Equal(t, "Rabies", detail.Vaccinations[0].VaccineName)
	assert.Equal(t, 5, *detail.Age)

	_, err = svc.Get(ctx, vet, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdate(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	ownerUser := dbtest.CreateUser(t, client, enums.RoleClient)
	newOwner := dbtest.CreateUser(t, client, enums.RoleClient)
	staff := actorFor(dbtest.CreateUser(t, client, enums.RoleStaff))
	vet := actorFor(dbtest.CreateUser(t, client, enums.RoleVet))
	pet := dbtest.CreatePet(t, client, ownerUser.ID)

	updated, err := svc.Update(ctx, actorFor(ownerUser), pet.ID, PetInput{Name: ptr("Max"), Allergies: ptr("pollen"), NeuteredStatus: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "Max", updated.Name)
	assert.Equal(t, "pollen", updated.Allergies)
	assert.True(t, updated.NeuteredStatus)
	assert.Equal(t, "Beagle", updated.Breed)

	_, err = svc.Update(ctx, vet, pet.ID, PetInput{Name: ptr("Nope")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Update(ctx, actorFor(ownerUser), pet.ID, PetInput{UserID: &newOwner.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	moved, err := svc.Update(ctx, staff, pet.ID, PetInput{UserID: &newOwner.ID, BirthDate: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, newOwner.ID, moved.OwnerID)
	assert.Nil(t, moved.BirthDate)

	_, err = svc.Update(ctx, staff, pet.ID, PetInput{Name: ptr("  ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteCascadesAndWarnsOnImageFailure(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	conn := client.DB()
	ownerUser := dbtest.CreateUser(t, client, enums.RoleClient)
	owner := actorFor(ownerUser)
	vetUser := dbtest.CreateUser(t, client, enums.RoleVet)

	pet, err := svc.Create(ctx, owner, PetInput{Name: ptr("Milo"), Gender: ptr(enums.PetGenderMale)})
	require.NoError(t, err)
	_, err = svc.SetImage(ctx, owner, pet.ID, images.Upload{Data: []byte("x"), ContentType: "image/jpeg", Extension: ".jpg"})
	require.NoError(t, err)

	model := &models.Pet{ID: pet.ID, UserID: ownerUser.ID}
	appt := dbtest.CreateAppointment(t, client, model, enums.AppointmentStatusConfirmed, &vetUser.ID, testNow.Add(96*time.Hour))
	service := dbtest.CreateService(t, client, "Others")
	vaccine := dbtest.CreateVaccine(t, client, "Rabies")
	require.NoError(t, conn.Create(&models.Treatment{AppointmentID: appt.ID, ServiceID: service.ID, Description: "exam"}).Error)
	require.NoError(t, conn.Create(&models.Vaccinated{PetID: pet.ID, VaccineID: vaccine.ID, Date: testNow}).Error)

	_, err = svc.Get(ctx, actorFor(dbtest.CreateUser(t, client, enums.RoleClient)), pet.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	store.DeleteErr = imagestest.ErrUnavailable
	require.NoError(t, svc.Delete(ctx, owner, pet.ID))

	for _, m := range []any{&models.Pet{}, &models.Appointment{}, &models.Treatment{}, &models.Vaccinated{}} {
		var count int64
		require.NoError(t, conn.Model(m).Count(&count).Error)
		assert.Zerof(t, count, "%T rows remain", m)
	}

	err = svc.Delete(ctx, owner, pet.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetImageDisabled(t *testing.T) {
	svc, client := newTestService(t, nil)
	ownerUser := dbtest.CreateUser(t, client, enums.RoleClient)
	pet := dbtest.CreatePet(t, client, ownerUser.ID)

	_, err := svc.SetImage(context.Background(), actorFor(ownerUser), pet.ID, images.Upload{Data: []byte("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
