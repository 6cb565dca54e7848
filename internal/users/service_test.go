package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/images/imagestest"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/dbtest"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

var cheapPasswords = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1}

func newTestService(t *testing.T, store images.Store) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(ServiceParams{
		DB:     client,
		Hasher: security.NewHasher(cheapPasswords),
		Images: store,
		Clock:  func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, client
}

func actorFor(u *models.User) identity.Actor {
	return identity.NewActor(u.ID, u.Role)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{DB: dbtest.New(t)})
	require.Error(t, err)
}

func TestRegisterForcesClientRole(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()

	dto, err := svc.Register(ctx, CreateUserInput{
		Email:     " New.Owner@Example.com ",
		Password:  "correct-horse",
		FirstName: "Nina",
		LastName:  "Owner",
		Role:      enums.RoleStaff,
	})
	require.NoError(t, err)
	require.Equal(t, enums.RoleClient, dto.Role)
	require.Equal(t, "new.owner@example.com", dto.Email)
	require.True(t, dto.IsActive)

	stored, err := NewRepository(client.DB()).FindByID(ctx, dto.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Register(ctx, CreateUserInput{Email: "NEW.OWNER@example.com", Password: "correct-horse", FirstName: "A", LastName: "B"})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, emailTakenMessage, pkgerrors.As(err).Details().(map[string]string)["email"])
}

func TestRegisterValidatesFields(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Register(context.Background(), CreateUserInput{Email: "nope", Password: "short"})
	requireCode(t, err, pkgerrors.CodeValidation)
	details := pkgerrors.As(err).Details().(map[string]string)
	require.Contains(t, details, "email")
	require.Contains(t, details, "password")
	require.Contains(t, details, "first_name")
	require.Contains(t, details, "last_name")
}

func TestRegisterImageFailureIsNonFatal(t *testing.T) {
	store := imagestest.New()
	store.UploadErr = imagestest.ErrUnavailable
	svc, _ := newTestService(t, store)

	dto, err := svc.Register(context.Background(), CreateUserInput{
		Email: "pic@example.com", Password: "correct-horse", FirstName: "P", LastName: "Q",
		Image: &images.Upload{Data: []byte("png"), ContentType: "image/png", Extension: ".png"},
	})
	require.NoError(t, err)
	require.Nil(t, dto.ImageURL)
}

func TestCreateIsStaffOnly(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	staff := dbtest.CreateUser(t, client, enums.RoleStaff)
	vet := dbtest.CreateUser(t, client, enums.RoleVet)

	input := CreateUserInput{Email: "vet2@example.com", Password: "correct-horse", FirstName: "V", LastName: "Two", Role: enums.RoleVet}
	_, err := svc.Create(ctx, actorFor(vet), input)
	requireCode(t, err, pkgerrors.CodeForbidden)

	inactive := false
	input.IsActive = &inactive
	dto, err := svc.Create(ctx, actorFor(staff), input)
	require.NoError(t, err)
	require.Equal(t, enums.RoleVet, dto.Role)
	require.False(t, dto.IsActive)
}

func TestListFiltersByRoleAndActive(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	staff := dbtest.CreateUser(t, client, enums.RoleStaff)
	dbtest.CreateUser(t, client, enums.RoleVet)
	idle := dbtest.CreateUser(t, client, enums.RoleVet)
	require.NoError(t, NewRepository(client.DB()).Update(ctx, idle.ID, map[string]any{"is_active": false}))

	vet := enums.RoleVet
	all, err := svc.List(ctx, actorFor(staff), ListUsersInput{Role: &vet})
	require.NoError(t, err)
	require.Len(t, all, 2)

	active := true
	onlyActive, err := svc.List(ctx, actorFor(staff), ListUsersInput{Role: &vet, Active: &active})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)

	client1 := dbtest.CreateUser(t, client, enums.RoleClient)
	_, err = svc.List(ctx, actorFor(client1), ListUsersInput{})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestGetVisibilityAndPets(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	other := dbtest.CreateUser(t, client, enums.RoleClient)
	vet := dbtest.CreateUser(t, client, enums.RoleVet)
	dbtest.CreatePet(t, client, owner.ID)
	dbtest.CreatePet(t, client, owner.ID)

	detail, err := svc.Get(ctx, actorFor(owner), owner.ID)
	require.NoError(t, err)
	require.Equal(t, 2, detail.TotalPets)
	require.Len(t, detail.Pets, 2)
	require.Equal(t, 4, *detail.Pets[0].Age)

	_, err = svc.Get(ctx, actorFor(vet), owner.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, actorFor(other), owner.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.Get(ctx, actorFor(vet), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Get(ctx, identity.Anonymous(), owner.ID)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestUpdateRules(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	staff := dbtest.CreateUser(t, client, enums.RoleStaff)
	taken := dbtest.CreateUser(t, client, enums.RoleClient)

	name := "Renamed"
	dto, err := svc.Update(ctx, actorFor(owner), owner.ID, UpdateUserInput{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", dto.FirstName)

	vet := enums.RoleVet
	_, err = svc.Update(ctx, actorFor(owner), owner.ID, UpdateUserInput{Role: &vet})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svc.Update(ctx, actorFor(owner), staff.ID, UpdateUserInput{FirstName: &name})
	requireCode(t, err, pkgerrors.CodeForbidden)

	dto, err = svc.Update(ctx, actorFor(staff), owner.ID, UpdateUserInput{Role: &vet})
	require.NoError(t, err)
	require.Equal(t, enums.RoleVet, dto.Role)

	_, err = svc.Update(ctx, actorFor(staff), owner.ID, UpdateUserInput{Email: &taken.Email})
	requireCode(t, err, pkgerrors.CodeValidation)

	password := "another-secret"
	_, err = svc.Update(ctx, actorFor(staff), owner.ID, UpdateUserInput{Password: &password})
	require.NoError(t, err)
	stored, err := NewRepository(client.DB()).FindByID(ctx, owner.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword(password, stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteCascadesAndNullsVet(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	conn := client.DB()

	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	vet := dbtest.CreateUser(t, client, enums.RoleVet)
	staff := dbtest.CreateUser(t, client, enums.RoleStaff)
	pet := dbtest.CreatePet(t, client, owner.ID)
	vaccine := dbtest.CreateVaccine(t, client, "Rabies")
	service := dbtest.CreateService(t, client, "Others")
	require.NoError(t, conn.Create(&models.Vaccinated{PetID: pet.ID, VaccineID: vaccine.ID, Date: time.Now()}).Error)
	appt := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, &vet.ID, time.Now().Add(96*time.Hour))
	require.NoError(t, conn.Create(&models.Treatment{AppointmentID: appt.ID, ServiceID: service.ID, Description: "check"}).Error)
	require.NoError(t, conn.Create(&models.Schedule{VetID: vet.ID, Weekday: 1, StartTime: "09:00", EndTime: "17:00"}).Error)

	otherOwner := dbtest.CreateUser(t, client, enums.RoleClient)
	otherPet := dbtest.CreatePet(t, client, otherOwner.ID)
	otherAppt := dbtest.CreateAppointment(t, client, otherPet, enums.AppointmentStatusConfirmed, &vet.ID, time.Now().Add(96*time.Hour))

	require.NoError(t, svc.Delete(ctx, actorFor(staff), vet.ID))
	var reloaded models.Appointment
	require.NoError(t, conn.First(&reloaded, "id = ?", otherAppt.ID).Error)
	require.Nil(t, reloaded.AssignedVetID)
	var schedules int64
	require.NoError(t, conn.Model(&models.Schedule{}).Count(&schedules).Error)
	require.Zero(t, schedules)

	require.NoError(t, svc.Delete(ctx, actorFor(owner), owner.ID))
	owned := []struct {
		model any
		query string
		id    any
	}{
		{&models.Pet{}, "user_id = ?", owner.ID},
		{&models.Vaccinated{}, "pet_id = ?", pet.ID},
		{&models.Appointment{}, "pet_id = ?", pet.ID},
		{&models.Treatment{}, "appointment_id = ?", appt.ID},
	}
	for _, o := range owned {
		var count int64
		require.NoError(t, conn.Model(o.model).Where(o.query, o.id).Count(&count).Error)
		require.Zerof(t, count, "%T rows remain", o.model)
	}

	var remainingPets []models.Pet
	require.NoError(t, conn.Find(&remainingPets).Error)
	require.Len(t, remainingPets, 1)
	require.Equal(t, otherPet.ID, remainingPets[0].ID)
	var appointments int64
	require.NoError(t, conn.Model(&models.Appointment{}).Count(&appointments).Error)
	require.EqualValues(t, 1, appointments)

	err := svc.Delete(ctx, actorFor(otherOwner), staff.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestDeleteImageFailureIsStorageError(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, client, enums.RoleClient)

	_, err := svc.SetImage(ctx, actorFor(owner), owner.ID, images.Upload{Data: []byte("x"), ContentType: "image/png", Extension: ".png"})
	require.NoError(t, err)

	store.DeleteErr = imagestest.ErrUnavailable
	err = svc.Delete(ctx, actorFor(owner), owner.ID)
	requireCode(t, err, pkgerrors.CodeStorage)
	require.Equal(t, "user deleted but image cleanup failed", pkgerrors.As(err).Message())

	_, err = NewRepository(client.DB()).FindByID(ctx, owner.ID)
	require.True(t, db.IsNotFound(err))
}

func TestSetImageReplacesPrevious(t *testing.T) {
	store := imagestest.New()
	svc, client := newTestService(t, store)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	upload := images.Upload{Data: []byte("x"), ContentType: "image/png", Extension: ".png"}

	first, err := svc.SetImage(ctx, actorFor(owner), owner.ID, upload)
	require.NoError(t, err)
	require.NotNil(t, first.ImageURL)

	second, err := svc.SetImage(ctx, actorFor(owner), owner.ID, upload)
	require.NoError(t, err)
	require.NotEqual(t, *first.ImageURL, *second.ImageURL)
	require.Len(t, store.Deleted, 1)
	require.Len(t, store.Objects, 1)
}
