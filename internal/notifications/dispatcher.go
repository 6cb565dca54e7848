// Package notifications fans appointment events out to email recipients.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/mailer"
	"github.com/petcare/vetclinic-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const dateLayout = "Monday, January 2, 2006 at 15:04"

// Mailer delivers one rendered message.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Publisher receives a JSON copy of every dispatched event.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

type staffDirectory interface {
	ListActiveByRole(ctx context.Context, role enums.Role) ([]models.User, error)
}

type recipientKind int

const (
	recipientOwner recipientKind = iota
	recipientVet
	recipientStaff
)

type route struct {
	kind     recipientKind
	template Template
}

var routes = map[enums.NotificationEvent][]route{
	enums.NotificationEventNewBooking: {
		{recipientOwner, TemplateBookingReceivedOwner},
		{recipientStaff, TemplateBookingReceivedStaff},
	},
	enums.NotificationEventStatusConfirmed: {
		{recipientVet, TemplateConfirmedVet},
		{recipientOwner, TemplateConfirmedOwner},
	},
	enums.NotificationEventStatusCancelled: {
		{recipientOwner, TemplateCancelledOwner},
		{recipientStaff, TemplateCancelledStaff},
	},
	enums.NotificationEventStatusRejected: {
		{recipientOwner, TemplateRejectedOwner},
	},
	enums.NotificationEventReminder: {
		{recipientOwner, TemplateReminderOwner},
	},
}

// Envelope is the Pub/Sub payload for a dispatched event.
type Envelope struct {
	Event         enums.NotificationEvent `json:"event"`
	AppointmentID uuid.UUID               `json:"appointment_id"`
	Status        string                  `json:"status"`
	PreviousState string                  `json:"previous_status,omitempty"`
	Date          time.Time               `json:"date"`
	Recipients    int                     `json:"recipients"`
	Failed        int                     `json:"failed"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

type DispatcherParams struct {
	Mailer      Mailer
	Staff       staffDirectory
	Publisher   Publisher
	Metrics     *metrics.NotificationMetrics
	Logger      *logger.Logger
	ClinicName  string
	FrontendURL string
	Location    *time.Location
	Clock       func() time.Time
}

// Dispatcher renders and sends the emails for each appointment event. Send
// failures are logged and counted, never returned to the appointment flow.
type Dispatcher struct {
	mailer      Mailer
	staff       staffDirectory
	publisher   Publisher
	metrics     *metrics.NotificationMetrics
	logg        *logger.Logger
	clinicName  string
	frontendURL string
	loc         *time.Location
	now         func() time.Time
	templates   map[Template]emailTemplate
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Mailer == nil {
		return nil, errors.New("mailer is required")
	}
	if params.Staff == nil {
		return nil, errors.New("staff directory is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		mailer:      params.Mailer,
		staff:       params.Staff,
		publisher:   params.Publisher,
		metrics:     params.Metrics,
		logg:        params.Logger,
		clinicName:  params.ClinicName,
		frontendURL: strings.TrimRight(params.FrontendURL, "/"),
		loc:         loc,
		now:         clock,
		templates:   parseTemplates(),
	}, nil
}

func (d *Dispatcher) AppointmentBooked(ctx context.Context, appt *models.Appointment) {
	_ = d.dispatch(ctx, enums.NotificationEventNewBooking, appt, "")
}

func (d *Dispatcher) StatusChanged(ctx context.Context, appt *models.Appointment, from, to enums.AppointmentStatus) {
	event, ok := enums.NotificationEventForStatus(to)
	if !ok {
		return
	}
	_ = d.dispatch(ctx, event, appt, from.String())
}

// Reminder emails the owner about an upcoming confirmed appointment. The
// returned error aggregates failed sends so the job can count them.
func (d *Dispatcher) Reminder(ctx context.Context, appt *models.Appointment) error {
	return d.dispatch(ctx, enums.NotificationEventReminder, appt, "")
}

type recipient struct {
	user     models.User
	template Template
}

func (d *Dispatcher) dispatch(ctx context.Context, event enums.NotificationEvent, appt *models.Appointment, previous string) error {
	if appt == nil {
		return errors.New("appointment is required")
	}
	if d.logg != nil {
		ctx = d.logg.WithFields(ctx, map[string]any{
			"event":          event.String(),
			"appointment_id": appt.ID.String(),
		})
	}

	recipients, errs := d.resolve(ctx, event, appt)
	var sendErr error
	failed := 0
	for _, r := range recipients {
		if err := d.send(ctx, event, r, appt); err != nil {
			failed++
			sendErr = multierr.Append(sendErr, err)
			d.metrics.IncSent(event.String(), "error")
			d.logError(d.withRecipient(ctx, r), "notification send failed", err)
			continue
		}
		d.metrics.IncSent(event.String(), "ok")
	}
	errs = multierr.Append(errs, sendErr)

	if errs != nil {
		d.logError(ctx, "notification dispatch incomplete", errs)
	} else if d.logg != nil {
		d.logg.Info(d.logg.WithField(ctx, "recipients", len(recipients)), "notification dispatched")
	}

	d.publish(ctx, Envelope{
		Event:         event,
		AppointmentID: appt.ID,
		Status:        appt.Status.String(),
		PreviousState: previous,
		Date:          appt.Date.UTC(),
		Recipients:    len(recipients),
		Failed:        failed,
		OccurredAt:    d.now().UTC(),
	})
	return errs
}

func (d *Dispatcher) resolve(ctx context.Context, event enums.NotificationEvent, appt *models.Appointment) ([]recipient, error) {
	var (
		out  []recipient
		errs error
	)
	for _, rt := range routes[event] {
		switch rt.kind {
		case recipientOwner:
			if appt.User == nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: appointment owner not loaded", rt.template))
				continue
			}
			out = append(out, recipient{user: *appt.User, template: rt.template})
		case recipientVet:
			if appt.AssignedVet == nil {
				if d.logg != nil {
					d.logg.Warn(ctx, "confirmed appointment has no assigned vet to notify")
				}
				continue
			}
			out = append(out, recipient{user: *appt.AssignedVet, template: rt.template})
		case recipientStaff:
			staff, err := d.staff.ListActiveByRole(ctx, enums.RoleStaff)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: list staff: %w", rt.template, err))
				continue
			}
			for _, member := range staff {
				out = append(out, recipient{user: member, template: rt.template})
			}
		default:
			errs = multierr.Append(errs, fmt.Errorf("%s: unknown recipient kind", rt.template))
		}
	}
	return out, errs
}

func (d *Dispatcher) send(ctx context.Context, event enums.NotificationEvent, r recipient, appt *models.Appointment) error {
	tmpl, ok := d.templates[r.template]
	if !ok {
		return fmt.Errorf("template %s not registered", r.template)
	}
	body, err := tmpl.render(d.templateData(r.user, appt))
	if err != nil {
		return fmt.Errorf("%s: %w", r.template, err)
	}
	msg := mailer.Message{
		To:      r.user.Email,
		ToName:  r.user.FullName(),
		Subject: body.Subject,
		HTML:    body.HTML,
		Text:    body.Text,
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s to %s: %w", event, r.user.Email, err)
	}
	return nil
}

func (d *Dispatcher) templateData(to models.User, appt *models.Appointment) templateData {
	data := templateData{
		ClinicName:    d.clinicName,
		RecipientName: to.FirstName,
		Purpose:       appt.Purpose,
		Date:          appt.Date.In(d.loc).Format(dateLayout),
		Status:        appt.Status.String(),
		AppointmentID: appt.ID.String(),
		Link:          fmt.Sprintf("%s/appointments/%s", d.frontendURL, appt.ID),
	}
	if appt.Remarks != nil {
		data.Remarks = *appt.Remarks
	}
	if appt.User != nil {
		data.OwnerName = appt.User.FullName()
		data.OwnerEmail = appt.User.Email
	}
	if appt.Pet != nil {
		data.PetName = appt.Pet.Name
	}
	if appt.AssignedVet != nil {
		data.VetName = "Dr. " + appt.AssignedVet.FullName()
	}
	if data.RecipientName == "" {
		data.RecipientName = to.Email
	}
	return data
}

func (d *Dispatcher) publish(ctx context.Context, env Envelope) {
	if d.publisher == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		d.logError(ctx, "marshal notification envelope", err)
		return
	}
	if _, err := d.publisher.Publish(ctx, payload, map[string]string{"event": env.Event.String()}); err != nil {
		d.logError(ctx, "publish notification envelope", err)
	}
}

func (d *Dispatcher) withRecipient(ctx context.Context, r recipient) context.Context {
	if d.logg == nil {
		return ctx
	}
	return d.logg.WithFields(ctx, map[string]any{
		"recipient": r.user.Email,
		"template":  string(r.template),
	})
}

func (d *Dispatcher) logError(ctx context.Context, msg string, err error) {
	if d.logg != nil {
		d.logg.Error(ctx, msg, err)
	}
}
