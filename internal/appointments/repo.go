package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists appointments and their treatments.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List. Nil fields are ignored.
type ListFilter struct {
	UserID *uuid.UUID
	VetID  *uuid.UUID
	Status *enums.AppointmentStatus
}

var statusPriorityOrder = buildPriorityOrder(
	enums.AppointmentStatusBooked,
	enums.AppointmentStatusConfirmed,
	enums.AppointmentStatusCompleted,
	enums.AppointmentStatusCancelled,
	enums.AppointmentStatusRejected,
)

func buildPriorityOrder(statuses ...enums.AppointmentStatus) string {
	var b strings.Builder
	b.WriteString("CASE appointments.status")
	for _, status := range statuses {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", status, status.Priority())
	}
	fmt.Fprintf(&b, " ELSE %d END", len(statuses)+1)
	return b.String()
}

func (r *Repository) Create(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(appt).Error
}

// FindByID loads an appointment with its owner, pet and vet.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.withAssociations(ctx).First(&appt, "appointments.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

// List orders by status priority, then date ascending.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Appointment, error) {
	query := r.withAssociations(ctx).Model(&models.Appointment{})
	if filter.UserID != nil {
		query = query.Where("appointments.user_id = ?", *filter.UserID)
	}
	if filter.VetID != nil {
		query = query.Where("appointments.assigned_vet_id = ?", *filter.VetID)
	}
	if filter.Status != nil {
		query = query.Where("appointments.status = ?", *filter.Status)
	}
	var out []models.Appointment
	if err := query.
		Order(statusPriorityOrder).
		Order("appointments.date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStatusBetween returns appointments in status with from <= date < to.
func (r *Repository) ListByStatusBetween(ctx context.Context, status enums.AppointmentStatus, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	if err := r.withAssociations(ctx).
		Where("appointments.status = ? AND appointments.date >= ? AND appointments.date < ?", status, from, to).
		Order("appointments.date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(updates).Error
}

// ListTreatments returns the appointment's treatments in insertion order.
func (r *Repository) ListTreatments(ctx context.Context, appointmentID uuid.UUID) ([]models.Treatment, error) {
	var out []models.Treatment
	if err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Vaccine").
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Pet").
		Preload("AssignedVet")
}
