package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"gorm.io/gorm"
)

// DefaultLeadTime is the minimum gap between now and a booked date.
const DefaultLeadTime = 72 * time.Hour

// Notifier receives committed appointment events. Implementations must not
// block the caller on delivery failures.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt *models.Appointment)
	StatusChanged(ctx context.Context, appt *models.Appointment, from, to enums.AppointmentStatus)
}

// Service is the appointment lifecycle engine.
type Service interface {
	Create(ctx context.Context, actor identity.Actor, input CreateInput) (*AppointmentDTO, error)
	Edit(ctx context.Context, actor identity.Actor, id uuid.UUID, input EditInput) (*AppointmentDTO, error)
	UpdateStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, input StatusInput) (*AppointmentDTO, error)
	List(ctx context.Context, actor identity.Actor, input ListInput) ([]AppointmentDTO, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AppointmentDetailDTO, error)
}

type ServiceParams struct {
	DB       *db.Client
	Notifier Notifier
	Images   images.Store
	Logger   *logger.Logger
	Clock    func() time.Time
	LeadTime time.Duration
}

type service struct {
	db       *db.Client
	repo     *Repository
	notifier Notifier
	images   images.Store
	logg     *logger.Logger
	now      func() time.Time
	leadTime time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	lead := params.LeadTime
	if lead <= 0 {
		lead = DefaultLeadTime
	}
	return &service{
		db:       params.DB,
		repo:     NewRepository(params.DB.DB()),
		notifier: params.Notifier,
		images:   params.Images,
		logg:     params.Logger,
		now:      clock,
		leadTime: lead,
	}, nil
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (*AppointmentDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}

	fields := pkgerrors.FieldErrors{}
	appt := &models.Appointment{}
	switch actor.Role {
	case enums.RoleClient:
		appt.UserID = actor.UserID
		appt.AssignedVetID = nil
		appt.Status = enums.AppointmentStatusBooked
	case enums.RoleStaff:
		if input.UserID == nil {
			fields.Add("user", "is required")
		} else {
			appt.UserID = *input.UserID
		}
		if !input.AssignedVet.Valid || input.AssignedVet.IsNull() {
			fields.Add("assigned_vet", "is required")
		} else {
			vetID := *input.AssignedVet.Value
			appt.AssignedVetID = &vetID
		}
		appt.Status = enums.AppointmentStatusConfirmed
	case enums.RoleVet:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vets cannot book appointments")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	if input.PetID == nil {
		fields.Add("pet", "is required")
	} else {
		appt.PetID = *input.PetID
	}
	if input.Purpose == nil || strings.TrimSpace(*input.Purpose) == "" {
		fields.Add("purpose", "is required")
	} else {
		appt.Purpose = strings.TrimSpace(*input.Purpose)
	}
	appt.Remarks = trimmedPtr(input.Remarks)
	if input.Date == nil {
		fields.Add("date", "is required")
	} else {
		appt.Date = input.Date.UTC()
		if msg := s.checkLeadTime(appt.Date); msg != "" {
			fields.Add("date", msg)
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		refs := pkgerrors.FieldErrors{}
		if actor.IsStaff() {
			if err := checkUserRole(ctx, tx, appt.UserID, enums.RoleClient, "user", refs); err != nil {
				return err
			}
			if err := checkUserRole(ctx, tx, *appt.AssignedVetID, enums.RoleVet, "assigned_vet", refs); err != nil {
				return err
			}
		}
		if err := checkPetOwner(ctx, tx, appt.PetID, appt.UserID, refs); err != nil {
			return err
		}
		if err := refs.Err(); err != nil {
			return err
		}
		if err := NewRepository(tx).Create(ctx, appt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create appointment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.load(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, created)
	}
	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Edit(ctx context.Context, actor identity.Actor, id uuid.UUID, input EditInput) (*AppointmentDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	fields := pkgerrors.FieldErrors{}
	ownerID := current.UserID
	vetID := current.AssignedVetID

	switch actor.Role {
	case enums.RoleClient:
		if !actor.Is(current.UserID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only edit your own appointments")
		}
		if current.Status != enums.AppointmentStatusBooked {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only booked appointments can be edited")
		}
		ownerID = actor.UserID
		vetID = nil
		updates["user_id"] = ownerID
		updates["assigned_vet_id"] = nil
	case enums.RoleStaff:
		if input.Status == nil {
			fields.Add("status", "is required")
		} else if msg := transitionError(current.Status, *input.Status); msg != "" {
			fields.Add("status", msg)
		} else {
			updates["status"] = *input.Status
		}
		if input.UserID != nil {
			ownerID = *input.UserID
			updates["user_id"] = ownerID
		}
		if input.AssignedVet.Valid {
			vetID = input.AssignedVet.Value
			updates["assigned_vet_id"] = vetID
		}
		if input.Status != nil && *input.Status == enums.AppointmentStatusConfirmed && vetID == nil {
			fields.Add("assigned_vet", "is required to confirm an appointment")
		}
	case enums.RoleVet:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vets cannot edit appointments")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	petID := current.PetID
	if input.PetID != nil {
		petID = *input.PetID
		updates["pet_id"] = petID
	}
	if input.Purpose != nil {
		if purpose := strings.TrimSpace(*input.Purpose); purpose == "" {
			fields.Add("purpose", "may not be blank")
		} else {
			updates["purpose"] = purpose
		}
	}
	if input.Remarks != nil {
		updates["remarks"] = trimmedPtr(input.Remarks)
	}
	if input.Date != nil {
		date := input.Date.UTC()
		if !date.Equal(current.Date) {
			if msg := s.checkLeadTime(date); msg != "" {
				fields.Add("date", msg)
			}
		}
		updates["date"] = date
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		refs := pkgerrors.FieldErrors{}
		if actor.IsStaff() {
			if input.UserID != nil {
				if err := checkUserRole(ctx, tx, ownerID, enums.RoleClient, "user", refs); err != nil {
					return err
				}
			}
			if input.AssignedVet.Valid && vetID != nil {
				if err := checkUserRole(ctx, tx, *vetID, enums.RoleVet, "assigned_vet", refs); err != nil {
					return err
				}
			}
		}
		if input.PetID != nil || ownerID != current.UserID {
			if err := checkPetOwner(ctx, tx, petID, ownerID, refs); err != nil {
				return err
			}
		}
		if err := refs.Err(); err != nil {
			return err
		}
		if err := NewRepository(tx).Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update appointment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, input StatusInput) (*AppointmentDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case enums.RoleClient:
		if !actor.Is(current.UserID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only update your own appointments")
		}
		if input.AssignedVet.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "clients cannot assign a vet")
		}
		if input.Status != nil && !clientMayRequest(*input.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "clients can only cancel or rebook appointments")
		}
	case enums.RoleStaff:
	case enums.RoleVet:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vets cannot change appointment status")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	if input.Status == nil {
		return nil, pkgerrors.FieldError("status", "is required")
	}
	next := *input.Status
	if msg := transitionError(current.Status, next); msg != "" {
		return nil, pkgerrors.FieldError("status", msg)
	}

	updates := map[string]any{"status": next}
	vetID := current.AssignedVetID
	if input.AssignedVet.Valid {
		vetID = input.AssignedVet.Value
		updates["assigned_vet_id"] = vetID
	}
	if next == enums.AppointmentStatusConfirmed && vetID == nil {
		return nil, pkgerrors.FieldError("assigned_vet", "is required to confirm an appointment")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if input.AssignedVet.Valid && vetID != nil {
			refs := pkgerrors.FieldErrors{}
			if err := checkUserRole(ctx, tx, *vetID, enums.RoleVet, "assigned_vet", refs); err != nil {
				return err
			}
			if err := refs.Err(); err != nil {
				return err
			}
		}
		if err := NewRepository(tx).Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update appointment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && current.Status != next {
		s.notifier.StatusChanged(ctx, updated, current.Status, next)
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor, input ListInput) ([]AppointmentDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.FieldError("status", "is not a valid status")
	}
	filter := ListFilter{Status: input.Status}
	self := actor.UserID
	switch actor.Role {
	case enums.RoleStaff:
	case enums.RoleVet:
		filter.VetID = &self
	case enums.RoleClient:
		filter.UserID = &self
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list appointments")
	}
	out := make([]AppointmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AppointmentDetailDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, appt) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot view this appointment")
	}

	history, err := vaccines.NewRepository(s.db.DB()).ListByPet(ctx, appt.PetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vaccinations")
	}
	treatments, err := s.repo.ListTreatments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list treatments")
	}

	detail := &AppointmentDetailDTO{
		AppointmentDTO: FromModel(appt),
		Vaccinations:   vaccines.VaccinationsFromModels(history),
		Treatments:     TreatmentsFromModels(treatments),
	}
	if appt.Pet != nil {
		detail.Pet = pets.FromModel(appt.Pet, s.now())
		detail.Pet.ImageURL = images.ResolveURL(ctx, s.images, s.logg, appt.Pet.ImageKey)
	}
	detail.Owner = s.userDTO(ctx, appt.User)
	detail.AssignedVet = s.userDTO(ctx, appt.AssignedVet)
	return detail, nil
}

func (s *service) userDTO(ctx context.Context, user *models.User) *users.UserDTO {
	if user == nil {
		return nil
	}
	dto := users.FromModel(user)
	dto.ImageURL = images.ResolveURL(ctx, s.images, s.logg, user.ImageKey)
	return dto
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return Load(ctx, s.repo, id)
}

// Load fetches an appointment with associations, mapping a missing row to
// NOT_FOUND.
func Load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Appointment, error) {
	appt, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load appointment")
	}
	return appt, nil
}

// checkLeadTime returns a validation message when date is too soon.
func (s *service) checkLeadTime(date time.Time) string {
	if date.Before(s.now().Add(s.leadTime)) {
		return fmt.Sprintf("must be at least %s from now", describeDuration(s.leadTime))
	}
	return ""
}

// CanView: staff see everything, vets what is assigned to them, clients
// their own bookings.
func CanView(actor identity.Actor, appt *models.Appointment) bool {
	switch actor.Role {
	case enums.RoleStaff:
		return actor.Authenticated
	case enums.RoleVet:
		return appt.AssignedVetID != nil && actor.Is(*appt.AssignedVetID)
	case enums.RoleClient:
		return actor.Is(appt.UserID)
	default:
		return false
	}
}

func clientMayRequest(status enums.AppointmentStatus) bool {
	switch status {
	case enums.AppointmentStatusCancelled, enums.AppointmentStatusBooked:
		return true
	default:
		return false
	}
}

func transitionError(from, to enums.AppointmentStatus) string {
	if !to.IsValid() {
		return "is not a valid status"
	}
	if !from.CanTransitionTo(to) {
		return fmt.Sprintf("cannot change status from %s to %s", from, to)
	}
	return ""
}

func checkUserRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.Role, field string, fields pkgerrors.FieldErrors) error {
	user, err := users.NewRepository(tx).FindByID(ctx, id)
	switch {
	case db.IsNotFound(err):
		fields.Add(field, "user not found")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	case user.Role != role:
		fields.Add(field, fmt.Sprintf("must be a user with role %s", role))
	}
	return nil
}

func checkPetOwner(ctx context.Context, tx *gorm.DB, petID, ownerID uuid.UUID, fields pkgerrors.FieldErrors) error {
	pet, err := pets.NewRepository(tx).FindByID(ctx, petID)
	switch {
	case db.IsNotFound(err):
		fields.Add("pet", "pet not found")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pet")
	case pet.UserID != ownerID:
		fields.Add("pet", "pet does not belong to this user")
	}
	return nil
}

func describeDuration(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
