package treatments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TreatmentInput is one service rendered during the visit.
type TreatmentInput struct {
	ServiceID   *uuid.UUID `json:"service"`
	Description string     `json:"description"`
	VaccineID   *uuid.UUID `json:"vaccine"`
}

type RecordInput struct {
	VetNote    string           `json:"vet_note"`
	Treatments []TreatmentInput `json:"treatments"`
}

// RecordResult is the completed appointment with the treatments just stored.
type RecordResult struct {
	Appointment appointments.AppointmentDTO `json:"appointment"`
	Treatments  []appointments.TreatmentDTO `json:"treatments"`
}

type Service interface {
	Record(ctx context.Context, actor identity.Actor, appointmentID uuid.UUID, input RecordInput) (*RecordResult, error)
	List(ctx context.Context, actor identity.Actor, appointmentID uuid.UUID) ([]appointments.TreatmentDTO, error)
}

type ServiceParams struct {
	DB     *db.Client
	Logger *logger.Logger
}

type service struct {
	db   *db.Client
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: params.DB, logg: params.Logger}, nil
}

// Record stores a treatment batch and completes the appointment. Every side
// effect shares one transaction.
func (s *service) Record(ctx context.Context, actor identity.Actor, appointmentID uuid.UUID, input RecordInput) (*RecordResult, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		apptRepo := appointments.NewRepository(tx)
		appt, err := appointments.Load(ctx, apptRepo, appointmentID)
		if err != nil {
			return err
		}
		if !isAssignedVet(actor, appt) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned vet can record treatments")
		}
		if appt.Status != enums.AppointmentStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeValidation, "treatments can only be recorded for confirmed appointments")
		}
		if len(input.Treatments) == 0 {
			return pkgerrors.FieldError("treatments", "at least one treatment is required")
		}

		var pet models.Pet
		if err := tx.WithContext(ctx).First(&pet, "id = ?", appt.PetID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pet")
		}
		neutered := pet.NeuteredStatus
		vaccineRepo := vaccines.NewRepository(tx)

		for i, item := range input.Treatments {
			prefix := fmt.Sprintf("treatments[%d]", i)
			offered, err := s.validate(ctx, tx, vaccineRepo, prefix, item)
			if err != nil {
				return err
			}

			switch {
			case offered.IsVaccination():
				record := &models.Vaccinated{
					PetID:     appt.PetID,
					VaccineID: *item.VaccineID,
					Date:      appt.Date,
					Remarks:   "Vaccinated during appointment: " + appt.Purpose,
				}
				if err := vaccineRepo.CreateRecord(ctx, record); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record vaccination")
				}
			case offered.IsNeutering():
				if neutered {
					return pkgerrors.FieldError(prefix+".service", "pet is already neutered")
				}
				neutered = true
				if err := tx.WithContext(ctx).Model(&models.Pet{}).
					Where("id = ?", pet.ID).
					Update("neutered_status", true).Error; err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark pet neutered")
				}
			}

			treatment := &models.Treatment{
				AppointmentID: appt.ID,
				ServiceID:     offered.ID,
				VaccineID:     item.VaccineID,
				Description:   strings.TrimSpace(item.Description),
			}
			if err := tx.WithContext(ctx).Omit(clause.Associations).Create(treatment).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create treatment")
			}
		}

		updates := map[string]any{"status": enums.AppointmentStatusCompleted}
		if note := strings.TrimSpace(input.VetNote); note != "" {
			updates["vet_note"] = note
		}
		if err := apptRepo.Update(ctx, appt.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete appointment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	repo := appointments.NewRepository(s.db.DB())
	appt, err := appointments.Load(ctx, repo, appointmentID)
	if err != nil {
		return nil, err
	}
	rows, err := repo.ListTreatments(ctx, appointmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list treatments")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"appointment_id": appointmentID.String(), "treatments": len(input.Treatments)})
		s.logg.Info(logCtx, "treatments.recorded")
	}
	return &RecordResult{
		Appointment: appointments.FromModel(appt),
		Treatments:  appointments.TreatmentsFromModels(rows),
	}, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor, appointmentID uuid.UUID) ([]appointments.TreatmentDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	repo := appointments.NewRepository(s.db.DB())
	appt, err := appointments.Load(ctx, repo, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointments.CanView(actor, appt) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot view this appointment")
	}
	rows, err := repo.ListTreatments(ctx, appointmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list treatments")
	}
	return appointments.TreatmentsFromModels(rows), nil
}

// validate checks one batch item and returns its service.
func (s *service) validate(ctx context.Context, tx *gorm.DB, vaccineRepo *vaccines.Repository, prefix string, item TreatmentInput) (*models.Service, error) {
	fields := pkgerrors.FieldErrors{}
	if strings.TrimSpace(item.Description) == "" {
		fields.Add(prefix+".description", "is required")
	}
	if item.ServiceID == nil {
		fields.Add(prefix+".service", "is required")
		return nil, fields.Err()
	}

	var offered models.Service
	if err := tx.WithContext(ctx).First(&offered, "id = ?", *item.ServiceID).Error; err != nil {
		if db.IsNotFound(err) {
			fields.Add(prefix+".service", "service not found")
			return nil, fields.Err()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service")
	}

	switch {
	case offered.IsVaccination() && item.VaccineID == nil:
		fields.Add(prefix+".vaccine", "is required for vaccination")
	case !offered.IsVaccination() && item.VaccineID != nil:
		fields.Add(prefix+".vaccine", "is only allowed for vaccination")
	case item.VaccineID != nil:
		if _, err := vaccineRepo.FindByID(ctx, *item.VaccineID); err != nil {
			if !db.IsNotFound(err) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vaccine")
			}
			fields.Add(prefix+".vaccine", "vaccine not found")
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}
	return &offered, nil
}

func isAssignedVet(actor identity.Actor, appt *models.Appointment) bool {
	switch actor.Role {
	case enums.RoleVet:
		return appt.AssignedVetID != nil && actor.Is(*appt.AssignedVetID)
	case enums.RoleStaff, enums.RoleClient:
		return false
	default:
		return false
	}
}
