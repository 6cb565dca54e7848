package pets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service manages pets and their images.
type Service interface {
	List(ctx context.Context, actor identity.Actor, input ListPetsInput) ([]PetDTO, error)
	Create(ctx context.Context, actor identity.Actor, input PetInput) (*PetDTO, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*PetDetailDTO, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input PetInput) (*PetDTO, error)
	Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error
	SetImage(ctx context.Context, actor identity.Actor, id uuid.UUID, upload images.Upload) (*PetDTO, error)
}

type ServiceParams struct {
	DB     *db.Client
	Images images.Store
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	db       *db.Client
	repo     *Repository
	vaccines *vaccines.Repository
	images   images.Store
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		db:       params.DB,
		repo:     NewRepository(params.DB.DB()),
		vaccines: vaccines.NewRepository(params.DB.DB()),
		images:   params.Images,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor, input ListPetsInput) ([]PetDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	filter := ListFilter{OwnerID: input.OwnerID}
	switch actor.Role {
	case enums.RoleStaff, enums.RoleVet:
	case enums.RoleClient:
		if input.OwnerID != nil && *input.OwnerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only list your own pets")
		}
		self := actor.UserID
		filter.OwnerID = &self
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pets")
	}
	out := make([]PetDTO, 0, len(rows))
	for i := range rows {
		out = append(out, s.toDTO(ctx, &rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input PetInput) (*PetDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}

	var ownerID uuid.UUID
	switch actor.Role {
	case enums.RoleClient:
		ownerID = actor.UserID
	case enums.RoleStaff:
		if input.UserID == nil {
			return nil, pkgerrors.FieldError("user_id", "is required")
		}
		ownerID = *input.UserID
	case enums.RoleVet:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vets cannot register pets")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
	}

	pet := &models.Pet{UserID: ownerID}
	fields := pkgerrors.FieldErrors{}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		fields.Add("name", "is required")
	}
	if input.Gender == nil {
		fields.Add("gender", "is required")
	}
	s.apply(pet, input, fields)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if actor.IsStaff() {
		exists, err := s.repo.OwnerExists(ctx, ownerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
		}
		if !exists {
			return nil, pkgerrors.FieldError("user_id", "user not found")
		}
	}

	if err := s.repo.Create(ctx, pet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pet")
	}

	if input.Image != nil && s.images != nil {
		key := images.Key("pets", pet.ID, input.Image.Extension)
		if err := s.images.Upload(ctx, key, input.Image.ContentType, input.Image.Data); err != nil {
			s.warn(ctx, "pet.image_upload_failed", pet.ID, err)
		} else if err := s.repo.Update(ctx, pet.ID, map[string]any{"image_key": key}); err != nil {
			s.warn(ctx, "pet.image_link_failed", pet.ID, err)
			images.DeleteBestEffort(ctx, s.images, s.logg, &key)
		}
	}

	return s.reload(ctx, pet.ID)
}

func (s *service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*PetDetailDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	pet, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, pet) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot view this pet")
	}
	history, err := s.vaccines.ListByPet(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vaccinations")
	}
	return &PetDetailDTO{
		PetDTO:            s.toDTO(ctx, pet),
		Vaccinations:      vaccines.VaccinationsFromModels(history),
		TotalVaccinations: len(history),
	}, nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input PetInput) (*PetDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	pet, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, pet) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot modify this pet")
	}

	updates := map[string]any{}
	fields := pkgerrors.FieldErrors{}
	if input.UserID != nil && *input.UserID != pet.UserID {
		if !actor.IsStaff() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can change a pet's owner")
		}
		exists, err := s.repo.OwnerExists(ctx, *input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
		}
		if !exists {
			fields.Add("user_id", "user not found")
		} else {
			updates["user_id"] = *input.UserID
		}
	}

	changed := *pet
	s.apply(&changed, input, fields)
	if err := fields.Err(); err != nil {
		return nil, err
	}
	if input.Name != nil {
		updates["name"] = changed.Name
	}
	if input.Gender != nil {
		updates["gender"] = changed.Gender
	}
	if input.Breed != nil {
		updates["breed"] = changed.Breed
	}
	if input.Color != nil {
		updates["color"] = changed.Color
	}
	if input.Allergies != nil {
		updates["allergies"] = changed.Allergies
	}
	if input.Marks != nil {
		updates["marks"] = changed.Marks
	}
	if input.ChronicConditions != nil {
		updates["chronic_conditions"] = changed.ChronicConditions
	}
	if input.NeuteredStatus != nil {
		updates["neutered_status"] = changed.NeuteredStatus
	}
	if input.BirthDate != nil {
		updates["birth_date"] = changed.BirthDate
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pet")
	}
	return s.reload(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := actor.RequireAuthenticated(); err != nil {
		return err
	}
	pet, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, pet) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete this pet")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).DeleteCascade(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pet")
		}
		if s.images != nil && pet.ImageKey != nil && *pet.ImageKey != "" {
			if err := s.images.Delete(ctx, *pet.ImageKey); err != nil {
				s.warn(ctx, "pet.image_delete_failed", id, err)
			}
		}
		return nil
	})
}

func (s *service) SetImage(ctx context.Context, actor identity.Actor, id uuid.UUID, upload images.Upload) (*PetDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	pet, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, pet) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot modify this pet")
	}
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are disabled")
	}

	key := images.Key("pets", pet.ID, upload.Extension)
	if err := s.images.Upload(ctx, key, upload.ContentType, upload.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "image upload failed")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"image_key": key}); err != nil {
		images.DeleteBestEffort(ctx, s.images, s.logg, &key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link pet image")
	}
	images.DeleteBestEffort(ctx, s.images, s.logg, pet.ImageKey)
	return s.reload(ctx, id)
}

// apply copies the present input fields onto pet, collecting field errors.
func (s *service) apply(pet *models.Pet, input PetInput, fields pkgerrors.FieldErrors) {
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name == "" {
			fields.Add("name", "may not be blank")
		} else {
			pet.Name = name
		}
	}
	if input.Gender != nil {
		if !input.Gender.IsValid() {
			fields.Add("gender", "must be one of: Male, Female")
		} else {
			pet.Gender = *input.Gender
		}
	}
	if input.Breed != nil {
		pet.Breed = strings.TrimSpace(*input.Breed)
	}
	if input.Color != nil {
		pet.Color = strings.TrimSpace(*input.Color)
	}
	if input.Allergies != nil {
		pet.Allergies = strings.TrimSpace(*input.Allergies)
	}
	if input.Marks != nil {
		pet.Marks = strings.TrimSpace(*input.Marks)
	}
	if input.ChronicConditions != nil {
		pet.ChronicConditions = strings.TrimSpace(*input.ChronicConditions)
	}
	if input.NeuteredStatus != nil {
		pet.NeuteredStatus = *input.NeuteredStatus
	}
	if input.BirthDate != nil {
		raw := strings.TrimSpace(*input.BirthDate)
		if raw == "" {
			pet.BirthDate = nil
			return
		}
		parsed, err := time.Parse(birthDateLayout, raw)
		switch {
		case err != nil:
			fields.Add("birth_date", "must be a date in YYYY-MM-DD format")
		case parsed.After(s.now()):
			fields.Add("birth_date", "may not be in the future")
		default:
			pet.BirthDate = &parsed
		}
	}
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	pet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pet")
	}
	return pet, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*PetDTO, error) {
	pet, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(ctx, pet)
	return &dto, nil
}

func (s *service) toDTO(ctx context.Context, pet *models.Pet) PetDTO {
	dto := FromModel(pet, s.now())
	dto.ImageURL = images.ResolveURL(ctx, s.images, s.logg, pet.ImageKey)
	return dto
}

func (s *service) warn(ctx context.Context, msg string, petID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"pet_id": petID.String(), "error": err.Error()}), msg)
}

// CanView: staff and vets see every pet, clients only their own.
func CanView(actor identity.Actor, pet *models.Pet) bool {
	switch actor.Role {
	case enums.RoleStaff, enums.RoleVet:
		return actor.Authenticated
	case enums.RoleClient:
		return actor.Is(pet.UserID)
	default:
		return false
	}
}

func canManage(actor identity.Actor, pet *models.Pet) bool {
	switch actor.Role {
	case enums.RoleStaff:
		return actor.Authenticated
	case enums.RoleClient:
		return actor.Is(pet.UserID)
	case enums.RoleVet:
		return false
	default:
		return false
	}
}
