package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/pkg/db/dbtest"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMarker struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeMarker) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeMarker) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func (f *fakeMarker) ReminderMarkerKey(day time.Time) string {
	return "petcare:reminders:sent:" + day.Format(dayLayout)
}

type fakeReminderSender struct {
	got  []uuid.UUID
	fail map[uuid.UUID]bool
}

func (f *fakeReminderSender) Reminder(_ context.Context, appt *models.Appointment) error {
	if f.fail[appt.ID] {
		return errors.New("mail rejected")
	}
	if appt.User == nil || appt.Pet == nil {
		return errors.New("associations not loaded")
	}
	f.got = append(f.got, appt.ID)
	return nil
}

func TestReminderJobSendsForConfirmedAppointmentsTwoDaysOut(t *testing.T) {
	client := dbtest.New(t)
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	pet := dbtest.CreatePet(t, client, owner.ID)
	loc := time.FixedZone("clinic", 2*3600)
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, loc)

	target := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, time.Date(2026, 6, 12, 0, 30, 0, 0, loc).UTC())
	late := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, time.Date(2026, 6, 12, 23, 30, 0, 0, loc).UTC())
	dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusBooked, nil, time.Date(2026, 6, 12, 11, 0, 0, 0, loc).UTC())
	dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, time.Date(2026, 6, 13, 0, 0, 0, 0, loc).UTC())
	dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, time.Date(2026, 6, 11, 23, 59, 0, 0, loc).UTC())

	marker := &fakeMarker{keys: map[string]time.Duration{}}
	sender := &fakeReminderSender{}
	job := newReminderJob(t, client.DB(), sender, marker, loc)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.ElementsMatch(t, []uuid.UUID{target.ID, late.ID}, sender.got)
	require.Equal(t, 48*time.Hour, marker.keys["petcare:reminders:sent:2026-06-10"])

	// A second run on the same day is a no-op.
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, sender.got, 2)
}

func TestReminderJobSetsMarkerWithNoAppointments(t *testing.T) {
	client := dbtest.New(t)
	marker := &fakeMarker{keys: map[string]time.Duration{}}
	sender := &fakeReminderSender{}
	job := newReminderJob(t, client.DB(), sender, marker, time.UTC)
	job.now = func() time.Time { return time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	require.Empty(t, sender.got)
	require.Contains(t, marker.keys, "petcare:reminders:sent:2026-06-10")
}

func TestReminderJobContinuesPastSendFailures(t *testing.T) {
	client := dbtest.New(t)
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	pet := dbtest.CreatePet(t, client, owner.ID)
	date := time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC)
	bad := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, date)
	good := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, date.Add(time.Hour))

	sender := &fakeReminderSender{fail: map[uuid.UUID]bool{bad.ID: true}}
	job := newReminderJob(t, client.DB(), sender, &fakeMarker{keys: map[string]time.Duration{}}, time.UTC)
	job.now = func() time.Time { return time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC) }

	err := job.Run(context.Background())
	require.ErrorContains(t, err, "mail rejected")
	require.Equal(t, []uuid.UUID{good.ID}, sender.got)
}

// flakyAppointments fails the first listing and then delegates.
type flakyAppointments struct {
	reminderAppointments
	calls int
}

func (f *flakyAppointments) ListByStatusBetween(ctx context.Context, status enums.AppointmentStatus, from, to time.Time) ([]models.Appointment, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("db timeout")
	}
	return f.reminderAppointments.ListByStatusBetween(ctx, status, from, to)
}

func TestReminderJobRetriesSameDayAfterListFailure(t *testing.T) {
	client := dbtest.New(t)
	owner := dbtest.CreateUser(t, client, enums.RoleClient)
	pet := dbtest.CreatePet(t, client, owner.ID)
	appt := dbtest.CreateAppointment(t, client, pet, enums.AppointmentStatusConfirmed, nil, time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC))
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	marker := &fakeMarker{keys: map[string]time.Duration{}}
	sender := &fakeReminderSender{}
	job := newReminderJob(t, client.DB(), sender, marker, time.UTC)
	job.now = func() time.Time { return now }
	repo := &flakyAppointments{reminderAppointments: job.appointments}
	job.appointments = repo

	daily, err := NewDailyJob(job, 8, time.UTC)
	require.NoError(t, err)
	daily.now = job.now

	require.ErrorContains(t, daily.Run(context.Background()), "db timeout")
	require.NotContains(t, marker.keys, "petcare:reminders:sent:2026-06-10")
	require.True(t, daily.Due(now))

	require.NoError(t, daily.Run(context.Background()))
	require.Equal(t, 2, repo.calls)
	require.Equal(t, []uuid.UUID{appt.ID}, sender.got)
	require.Contains(t, marker.keys, "petcare:reminders:sent:2026-06-10")
	require.False(t, daily.Due(now))
}

func TestReminderJobMarkerErrorStopsRun(t *testing.T) {
	client := dbtest.New(t)
	sender := &fakeReminderSender{}
	job := newReminderJob(t, client.DB(), sender, &fakeMarker{err: errors.New("redis down")}, time.UTC)

	require.Error(t, job.Run(context.Background()))
	require.Empty(t, sender.got)
}

func newReminderJob(t *testing.T, db *gorm.DB, sender reminderSender, marker reminderMarker, loc *time.Location) *reminderJob {
	t.Helper()
	jobIface, err := NewReminderJob(ReminderJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Appointments: appointments.NewRepository(db),
		Sender:       sender,
		Marker:       marker,
		Location:     loc,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*reminderJob)
	require.True(t, ok)
	return job
}
