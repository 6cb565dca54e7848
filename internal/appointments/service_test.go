package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/dbtest"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type statusEvent struct {
	id       uuid.UUID
	from, to enums.AppointmentStatus
}

type recordingNotifier struct {
	mu      sync.Mutex
	booked  []uuid.UUID
	changes []statusEvent
}

func (n *recordingNotifier) AppointmentBooked(_ context.Context, appt *models.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.booked = append(n.booked, appt.ID)
}

func (n *recordingNotifier) StatusChanged(_ context.Context, appt *models.Appointment, from, to enums.AppointmentStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, statusEvent{id: appt.ID, from: from, to: to})
}

type fixture struct {
	svc      Service
	client   *db.Client
	notifier *recordingNotifier
	staff    *models.User
	vet      *models.User
	owner    *models.User
	pet      *models.Pet
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		DB:       client,
		Notifier: notifier,
		Clock:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	return fixture{
		svc:      svc,
		client:   client,
		notifier: notifier,
		staff:    dbtest.CreateUser(t, client, enums.RoleStaff),
		vet:      dbtest.CreateUser(t, client, enums.RoleVet),
		owner:    owner,
		pet:      dbtest.CreatePet(t, client, owner.ID),
	}
}

func ptr[T any](v T) *T { return &v }

func actorFor(u *models.User) identity.Actor { return identity.NewActor(u.ID, u.Role) }

func vetRef(id uuid.UUID) types.NullableUUID { return types.SetUUID(id) }

func fieldMessage(t *testing.T, err error, field string) string {
	t.Helper()
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
	return pkgerrors.As(err).Details().(map[string]string)[field]
}

func countAppointments(t *testing.T, client *db.Client) int64 {
	t.Helper()
	var count int64
	require.NoError(t, client.DB().Model(&models.Appointment{}).Count(&count).Error)
	return count
}

func TestClientCreateForcesOwnerVetAndStatus(t *testing.T) {
	f := newFixture(t)
	other := dbtest.CreateUser(t, f.client, enums.RoleClient)

	dto, err := f.svc.Create(context.Background(), actorFor(f.owner), CreateInput{
		UserID:      &other.ID,
		PetID:       &f.pet.ID,
		Purpose:     ptr("Vaccination"),
		Date:        ptr(testNow.Add(96 * time.Hour)),
		AssignedVet: vetRef(f.vet.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, dto.UserID)
	assert.Nil(t, dto.AssignedVetID)
	assert.Equal(t, enums.AppointmentStatusBooked, dto.Status)
	assert.Equal(t, []uuid.UUID{dto.ID}, f.notifier.booked)
}

func TestCreateRejectsShortLeadTimeWithoutPersisting(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), actorFor(f.owner), CreateInput{
		PetID:   &f.pet.ID,
		Purpose: ptr("Checkup"),
		Date:    ptr(testNow.Add(48 * time.Hour)),
	})
	assert.Equal(t, "must be at least 3 days from now", fieldMessage(t, err, "date"))
	assert.Zero(t, countAppointments(t, f.client))
	assert.Empty(t, f.notifier.booked)
}

func TestStaffCreateRequiresUserAndVet(t *testing.T) {
	f := newFixture(t)
	staff := actorFor(f.staff)
	date := ptr(testNow.Add(96 * time.Hour))

	_, err := f.svc.Create(context.Background(), staff, CreateInput{PetID: &f.pet.ID, Purpose: ptr("x"), Date: date})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "is required", details["user"])
	assert.Equal(t, "is required", details["assigned_vet"])

	_, err = f.svc.Create(context.Background(), staff, CreateInput{
		UserID: &f.owner.ID, PetID: &f.pet.ID, Purpose: ptr("x"), Date: date, AssignedVet: vetRef(f.staff.ID),
	})
	assert.Equal(t, "must be a user with role vet", fieldMessage(t, err, "assigned_vet"))

	_, err = f.svc.Create(context.Background(), staff, CreateInput{
		UserID: &f.vet.ID, PetID: &f.pet.ID, Purpose: ptr("x"), Date: date, AssignedVet: vetRef(f.vet.ID),
	})
	assert.Equal(t, "must be a user with role client", fieldMessage(t, err, "user"))

	stranger := dbtest.CreateUser(t, f.client, enums.RoleClient)
	_, err = f.svc.Create(context.Background(), staff, CreateInput{
		UserID: &stranger.ID, PetID: &f.pet.ID, Purpose: ptr("x"), Date: date, AssignedVet: vetRef(f.vet.ID),
	})
	assert.Equal(t, "pet does not belong to this user", fieldMessage(t, err, "pet"))
	assert.Zero(t, countAppointments(t, f.client))

	dto, err := f.svc.Create(context.Background(), staff, CreateInput{
		UserID: &f.owner.ID, PetID: &f.pet.ID, Purpose: ptr("x"), Date: date, AssignedVet: vetRef(f.vet.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AppointmentStatusConfirmed, dto.Status)
	require.NotNil(t, dto.AssignedVetID)
	assert.Equal(t, f.vet.ID, *dto.AssignedVetID)
}

func TestVetCannotCreate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), actorFor(f.vet), CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Create(context.Background(), identity.Anonymous(), CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestClientEditRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, testNow.Add(96*time.Hour))

	dto, err := f.svc.Edit(ctx, actorFor(f.owner), booked.ID, EditInput{Purpose: ptr("Limping"), Status: ptr(enums.AppointmentStatusConfirmed)})
	require.NoError(t, err)
	assert.Equal(t, "Limping", dto.Purpose)
	assert.Equal(t, enums.AppointmentStatusBooked, dto.Status)

	_, err = f.svc.Edit(ctx, actorFor(f.owner), booked.ID, EditInput{Date: ptr(testNow.Add(24 * time.Hour))})
	assert.NotEmpty(t, fieldMessage(t, err, "date"))

	stranger := dbtest.CreateUser(t, f.client, enums.RoleClient)
	_, err = f.svc.Edit(ctx, actorFor(stranger), booked.ID, EditInput{Purpose: ptr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	confirmed := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusConfirmed, &f.vet.ID, testNow.Add(96*time.Hour))
	_, err = f.svc.Edit(ctx, actorFor(f.owner), confirmed.ID, EditInput{Purpose: ptr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Edit(ctx, actorFor(f.vet), confirmed.ID, EditInput{Purpose: ptr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestEditWithoutDateIsExemptFromLeadTime(t *testing.T) {
	f := newFixture(t)
	soon := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, testNow.Add(24*time.Hour))

	dto, err := f.svc.Edit(context.Background(), actorFor(f.owner), soon.ID, EditInput{Remarks: ptr("bring records")})
	require.NoError(t, err)
	require.NotNil(t, dto.Remarks)
	assert.Equal(t, "bring records", *dto.Remarks)

	_, err = f.svc.Edit(context.Background(), actorFor(f.owner), soon.ID, EditInput{Date: ptr(soon.Date)})
	require.NoError(t, err)
}

func TestStaffEditRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := actorFor(f.staff)
	booked := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, testNow.Add(96*time.Hour))

	_, err := f.svc.Edit(ctx, staff, booked.ID, EditInput{Purpose: ptr("x")})
	assert.Equal(t, "is required", fieldMessage(t, err, "status"))

	_, err = f.svc.Edit(ctx, staff, booked.ID, EditInput{Status: ptr(enums.AppointmentStatusConfirmed)})
	assert.NotEmpty(t, fieldMessage(t, err, "assigned_vet"))

	dto, err := f.svc.Edit(ctx, staff, booked.ID, EditInput{Status: ptr(enums.AppointmentStatusConfirmed), AssignedVet: vetRef(f.vet.ID)})
	require.NoError(t, err)
	assert.Equal(t, enums.AppointmentStatusConfirmed, dto.Status)

	_, err = f.svc.Edit(ctx, staff, booked.ID, EditInput{Status: ptr(enums.AppointmentStatusConfirmed), AssignedVet: types.NullUUID()})
	assert.NotEmpty(t, fieldMessage(t, err, "assigned_vet"))

	_, err = f.svc.Edit(ctx, staff, booked.ID, EditInput{Status: ptr(enums.AppointmentStatusBooked)})
	assert.Equal(t, "cannot change status from confirmed to booked", fieldMessage(t, err, "status"))
	assert.Empty(t, f.notifier.changes)
}

func TestUpdateStatusTransitionsAndNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := actorFor(f.staff)
	appt := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, testNow.Add(96*time.Hour))

	_, err := f.svc.UpdateStatus(ctx, staff, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusConfirmed)})
	assert.NotEmpty(t, fieldMessage(t, err, "assigned_vet"))

	dto, err := f.svc.UpdateStatus(ctx, staff, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusConfirmed), AssignedVet: vetRef(f.vet.ID)})
	require.NoError(t, err)
	assert.Equal(t, enums.AppointmentStatusConfirmed, dto.Status)

	_, err = f.svc.UpdateStatus(ctx, staff, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusConfirmed)})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, staff, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCompleted)})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, staff, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCancelled)})
	assert.Equal(t, "cannot change status from completed to cancelled", fieldMessage(t, err, "status"))

	require.Len(t, f.notifier.changes, 2)
	assert.Equal(t, statusEvent{id: appt.ID, from: enums.AppointmentStatusBooked, to: enums.AppointmentStatusConfirmed}, f.notifier.changes[0])
	assert.Equal(t, enums.AppointmentStatusCompleted, f.notifier.changes[1].to)
}

func TestClientUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := actorFor(f.owner)
	appt := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, testNow.Add(96*time.Hour))

	_, err := f.svc.UpdateStatus(ctx, owner, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusConfirmed)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, owner, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCancelled), AssignedVet: vetRef(f.vet.ID)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	stranger := dbtest.CreateUser(t, f.client, enums.RoleClient)
	_, err = f.svc.UpdateStatus(ctx, actorFor(stranger), appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCancelled)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	dto, err := f.svc.UpdateStatus(ctx, owner, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, enums.AppointmentStatusCancelled, dto.Status)
	require.Len(t, f.notifier.changes, 1)

	_, err = f.svc.UpdateStatus(ctx, owner, appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusBooked)})
	assert.NotEmpty(t, fieldMessage(t, err, "status"))

	_, err = f.svc.UpdateStatus(ctx, actorFor(f.vet), appt.ID, StatusInput{Status: ptr(enums.AppointmentStatusCancelled)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, owner, uuid.New(), StatusInput{Status: ptr(enums.AppointmentStatusCancelled)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListVisibilityAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	otherVet := dbtest.CreateUser(t, f.client, enums.RoleVet)
	base := testNow.Add(96 * time.Hour)

	rejected := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusRejected, nil, base)
	laterConfirmed := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusConfirmed, &f.vet.ID, base.Add(48*time.Hour))
	booked := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusBooked, nil, base.Add(72*time.Hour))
	earlyConfirmed := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusConfirmed, &f.vet.ID, base)
	completed := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusCompleted, &otherVet.ID, base)

	all, err := f.svc.List(ctx, actorFor(f.staff), ListInput{})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []uuid.UUID{booked.ID, earlyConfirmed.ID, laterConfirmed.ID, completed.ID, rejected.ID}, ids)

	vetView, err := f.svc.List(ctx, actorFor(f.vet), ListInput{})
	require.NoError(t, err)
	assert.Len(t, vetView, 2)

	status := enums.AppointmentStatusConfirmed
	filtered, err := f.svc.List(ctx, actorFor(f.owner), ListInput{Status: &status})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	stranger := dbtest.CreateUser(t, f.client, enums.RoleClient)
	none, err := f.svc.List(ctx, actorFor(stranger), ListInput{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := dbtest.CreateAppointment(t, f.client, f.pet, enums.AppointmentStatusConfirmed, &f.vet.ID, testNow.Add(96*time.Hour))
	vaccine := dbtest.CreateVaccine(t, f.client, "Rabies")
	service := dbtest.CreateService(t, f.client, models.ServiceTitleVaccination)
	conn := f.client.DB()
	require.NoError(t, conn.Create(&models.Vaccinated{PetID: f.pet.ID, VaccineID: vaccine.ID, Date: testNow}).Error)
	require.NoError(t, conn.Create(&models.Treatment{AppointmentID: appt.ID, ServiceID: service.ID, VaccineID: &vaccine.ID, Description: "shot"}).Error)

	detail, err := f.svc.Get(ctx, actorFor(f.vet), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, f.pet.Name, detail.Pet.Name)
	assert.Equal(t, 5, *detail.Pet.Age)
	require.NotNil(t, detail.Owner)
	assert.Equal(t, f.owner.ID, detail.Owner.ID)
	require.NotNil(t, detail.AssignedVet)
	require.Len(t, detail.Vaccinations, 1)
	assert.Equal(t, "Rabies", detail.Vaccinations[0].VaccineName)
	require.Len(t, detail.Treatments, 1)
	assert.Equal(t, models.ServiceTitleVaccination, detail.Treatments[0].ServiceTitle)
	assert.Equal(t, "Rabies", *detail.Treatments[0].VaccineName)

	otherVet := dbtest.CreateUser(t, f.client, enums.RoleVet)
	_, err = f.svc.Get(ctx, actorFor(otherVet), appt.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
