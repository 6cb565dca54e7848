package vaccines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"gorm.io/gorm"
)

const nameTakenMessage = "a vaccine with this name already exists"

// Service manages the vaccine catalog and the vaccination records of pets.
type Service interface {
	List(ctx context.Context, actor identity.Actor) ([]VaccineDTO, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*VaccineDTO, error)
	Create(ctx context.Context, actor identity.Actor, input VaccineInput) (*VaccineDTO, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input VaccineInput) (*VaccineDTO, error)
	Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error

	ListVaccinations(ctx context.Context, actor identity.Actor, input ListVaccinationsInput) ([]VaccinationDTO, error)
	GetVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID) (*VaccinationDTO, error)
	CreateVaccination(ctx context.Context, actor identity.Actor, input VaccinationInput) (*VaccinationDTO, error)
	UpdateVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID, input VaccinationInput) (*VaccinationDTO, error)
	DeleteVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID) error
}

type ServiceParams struct {
	DB       *db.Client
	Location *time.Location
	Clock    func() time.Time
}

type service struct {
	db   *db.Client
	repo *Repository
	loc  *time.Location
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		db:   params.DB,
		repo: NewRepository(params.DB.DB()),
		loc:  loc,
		now:  clock,
	}, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor) ([]VaccineDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vaccines")
	}
	out := make([]VaccineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, VaccineFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*VaccineDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	vaccine, err := s.loadVaccine(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := VaccineFromModel(vaccine)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input VaccineInput) (*VaccineDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return nil, err
	}
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return nil, pkgerrors.FieldError("name", "is required")
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	vaccine := &models.Vaccine{Name: name}
	if input.Description != nil {
		vaccine.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.repo.Create(ctx, vaccine); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.FieldError("name", nameTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vaccine")
	}
	dto := VaccineFromModel(vaccine)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input VaccineInput) (*VaccineDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return nil, err
	}
	if _, err := s.loadVaccine(ctx, s.repo, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.FieldError("name", "may not be blank")
		}
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.FieldError("name", nameTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vaccine")
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := s.loadVaccine(ctx, repo, id); err != nil {
			return err
		}
		count, err := repo.CountRecords(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count vaccinations")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "vaccine has vaccination records and cannot be deleted")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete vaccine")
		}
		return nil
	})
}

func (s *service) ListVaccinations(ctx context.Context, actor identity.Actor, input ListVaccinationsInput) ([]VaccinationDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	filter := RecordFilter{PetID: input.PetID, VaccineID: input.VaccineID, OwnerID: input.OwnerID}
	switch actor.Role {
	case enums.RoleStaff, enums.RoleVet:
	case enums.RoleClient:
		if input.OwnerID != nil && *input.OwnerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only view your own pets' vaccinations")
		}
		self := actor.UserID
		filter.OwnerID = &self
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	rows, err := s.repo.ListRecords(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vaccinations")
	}
	return VaccinationsFromModels(rows), nil
}

func (s *service) GetVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID) (*VaccinationDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	record, err := s.loadRecord(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !canViewRecord(actor, record) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot view this vaccination")
	}
	dto := VaccinationFromModel(record)
	return &dto, nil
}

func (s *service) CreateVaccination(ctx context.Context, actor identity.Actor, input VaccinationInput) (*VaccinationDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return nil, err
	}

	fields := pkgerrors.FieldErrors{}
	if input.PetID == nil {
		fields.Add("pet_id", "is required")
	}
	if input.VaccineID == nil {
		fields.Add("vaccine_id", "is required")
	}
	var date time.Time
	if input.Date == nil {
		fields.Add("date", "is required")
	} else if parsed, msg := s.parseDate(*input.Date); msg != "" {
		fields.Add("date", msg)
	} else {
		date = parsed
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := s.checkReferences(ctx, repo, input.PetID, input.VaccineID); err != nil {
			return err
		}
		record := &models.Vaccinated{
			PetID:     *input.PetID,
			VaccineID: *input.VaccineID,
			Date:      date,
		}
		if input.Remarks != nil {
			record.Remarks = strings.TrimSpace(*input.Remarks)
		}
		if err := repo.CreateRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vaccination")
		}
		id = record.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetVaccination(ctx, actor, id)
}

func (s *service) UpdateVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID, input VaccinationInput) (*VaccinationDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Date != nil {
		parsed, msg := s.parseDate(*input.Date)
		if msg != "" {
			return nil, pkgerrors.FieldError("date", msg)
		}
		updates["date"] = parsed
	}
	if input.Remarks != nil {
		updates["remarks"] = strings.TrimSpace(*input.Remarks)
	}
	if input.PetID != nil {
		updates["pet_id"] = *input.PetID
	}
	if input.VaccineID != nil {
		updates["vaccine_id"] = *input.VaccineID
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := s.loadRecord(ctx, repo, id); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, repo, input.PetID, input.VaccineID); err != nil {
			return err
		}
		if err := repo.UpdateRecord(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vaccination")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetVaccination(ctx, actor, id)
}

func (s *service) DeleteVaccination(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := actor.RequireRole(enums.RoleStaff, enums.RoleVet); err != nil {
		return err
	}
	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vaccination not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete vaccination")
	}
	return nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil && existing.ID != self:
		return pkgerrors.FieldError("name", nameTakenMessage)
	case err == nil, db.IsNotFound(err):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check vaccine name")
	}
}

// checkReferences validates the optional pet and vaccine ids of a record body.
func (s *service) checkReferences(ctx context.Context, repo *Repository, petID, vaccineID *uuid.UUID) error {
	fields := pkgerrors.FieldErrors{}
	if petID != nil {
		if _, err := repo.PetOwner(ctx, *petID); err != nil {
			if !db.IsNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pet")
			}
			fields.Add("pet_id", "pet not found")
		}
	}
	if vaccineID != nil {
		if _, err := repo.FindByID(ctx, *vaccineID); err != nil {
			if !db.IsNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vaccine")
			}
			fields.Add("vaccine_id", "vaccine not found")
		}
	}
	return fields.Err()
}

// parseDate returns a validation message when raw is malformed or lies after
// today in the clinic timezone.
func (s *service) parseDate(raw string) (time.Time, string) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, "must be a date in YYYY-MM-DD format"
	}
	today := s.now().In(s.loc).Format(DateLayout)
	if parsed.Format(DateLayout) > today {
		return time.Time{}, "may not be in the future"
	}
	return parsed, ""
}

func (s *service) loadVaccine(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Vaccine, error) {
	vaccine, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vaccine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vaccine")
	}
	return vaccine, nil
}

func (s *service) loadRecord(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Vaccinated, error) {
	record, err := repo.FindRecord(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vaccination not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vaccination")
	}
	return record, nil
}

func canViewRecord(actor identity.Actor, record *models.Vaccinated) bool {
	switch actor.Role {
	case enums.RoleStaff, enums.RoleVet:
		return actor.Authenticated
	case enums.RoleClient:
		return record.Pet != nil && actor.Is(record.Pet.UserID)
	default:
		return false
	}
}
