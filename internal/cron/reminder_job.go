package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	ReminderJobName        = "reminders"
	defaultReminderDays    = 2
	reminderMarkerTTL      = 48 * time.Hour
	reminderMarkerSentinel = "1"
)

type reminderAppointments interface {
	ListByStatusBetween(ctx context.Context, status enums.AppointmentStatus, from, to time.Time) ([]models.Appointment, error)
}

type reminderSender interface {
	Reminder(ctx context.Context, appt *models.Appointment) error
}

type reminderMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ReminderMarkerKey(day time.Time) string
}

type ReminderJobParams struct {
	Logger       *logger.Logger
	Appointments reminderAppointments
	Sender       reminderSender
	Marker       reminderMarker
	Location     *time.Location
	DaysAhead    int
}

// NewReminderJob emails owners of confirmed appointments DaysAhead days out.
// A Redis day marker keeps the job to one run per calendar day across
// instances and restarts.
func NewReminderJob(params ReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Appointments == nil {
		return nil, fmt.Errorf("appointments repository required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("reminder sender required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("reminder marker store required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	days := params.DaysAhead
	if days <= 0 {
		days = defaultReminderDays
	}
	return &reminderJob{
		logg:         params.Logger,
		appointments: params.Appointments,
		sender:       params.Sender,
		marker:       params.Marker,
		loc:          loc,
		days:         days,
		now:          time.Now,
	}, nil
}

type reminderJob struct {
	logg         *logger.Logger
	appointments reminderAppointments
	sender       reminderSender
	marker       reminderMarker
	loc          *time.Location
	days         int
	now          func() time.Time
}

func (j *reminderJob) Name() string { return ReminderJobName }

func (j *reminderJob) Run(ctx context.Context) error {
	today := startOfDay(j.now(), j.loc)
	markerKey := j.marker.ReminderMarkerKey(today)
	fresh, err := j.marker.SetNX(ctx, markerKey, reminderMarkerSentinel, reminderMarkerTTL)
	if err != nil {
		return fmt.Errorf("set reminder marker: %w", err)
	}
	if !fresh {
		j.logg.Info(j.logg.WithField(ctx, "day", today.Format(dayLayout)), "reminders already sent today; skipping")
		return nil
	}

	from := today.AddDate(0, 0, j.days)
	to := from.AddDate(0, 0, 1)
	appts, err := j.appointments.ListByStatusBetween(ctx, enums.AppointmentStatusConfirmed, from.UTC(), to.UTC())
	if err != nil {
		// Nothing was sent, so give the day back for the next attempt.
		if delErr := j.marker.Del(ctx, markerKey); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("release reminder marker: %w", delErr))
		}
		return fmt.Errorf("list confirmed appointments: %w", err)
	}

	var errs error
	sent := 0
	for i := range appts {
		if err := j.sender.Reminder(ctx, &appts[i]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("appointment %s: %w", appts[i].ID, err))
			continue
		}
		sent++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"target_day": from.Format(dayLayout),
		"found":      len(appts),
		"sent":       sent,
		"failed":     len(appts) - sent,
	})
	j.logg.Info(logCtx, "reminder job complete")
	return errs
}
