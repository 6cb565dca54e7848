package catalog

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
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"gorm.io/gorm"
)

const titleTakenMessage = "a service with this title already exists"

var mainServiceDescriptions = map[string]string{
	models.ServiceTitleVaccination: "Administer a vaccine and record it in the pet's history",
	models.ServiceTitleNeutering:   "Neutering or spaying surgery",
	models.ServiceTitleOthers:      "Any other treatment",
}

type ServiceDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsMain      bool      `json:"is_main"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ServiceInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func FromModel(s *models.Service) ServiceDTO {
	return ServiceDTO{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		IsMain:      s.IsMain(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Service manages the catalog of clinic services.
type Service interface {
	List(ctx context.Context, actor identity.Actor) ([]ServiceDTO, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ServiceDTO, error)
	Create(ctx context.Context, actor identity.Actor, input ServiceInput) (*ServiceDTO, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input ServiceInput) (*ServiceDTO, error)
	Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error
	EnsureMainServices(ctx context.Context) error
}

type ServiceParams struct {
	DB     *db.Client
	Logger *logger.Logger
}

type service struct {
	db   *db.Client
	repo *Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: params.DB, repo: NewRepository(params.DB.DB()), logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor) ([]ServiceDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list services")
	}
	out := make([]ServiceDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ServiceDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	svc, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(svc)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input ServiceInput) (*ServiceDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff); err != nil {
		return nil, err
	}
	title := ""
	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
	}
	if title == "" {
		return nil, pkgerrors.FieldError("title", "is required")
	}
	if err := s.ensureTitleFree(ctx, title, uuid.Nil); err != nil {
		return nil, err
	}

	row := &models.Service{Title: title}
	if input.Description != nil {
		row.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.FieldError("title", titleTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create service")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input ServiceInput) (*ServiceDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff); err != nil {
		return nil, err
	}
	existing, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if existing.IsMain() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "main services cannot be modified")
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.FieldError("title", "may not be blank")
		}
		if (models.Service{Title: title}).IsMain() {
			return nil, pkgerrors.FieldError("title", titleTakenMessage)
		}
		if err := s.ensureTitleFree(ctx, title, id); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.FieldError("title", titleTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update service")
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := actor.RequireRole(enums.RoleStaff); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		existing, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		if existing.IsMain() {
			return pkgerrors.New(pkgerrors.CodeValidation, "main services cannot be deleted")
		}
		count, err := repo.CountTreatments(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count treatments")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "service has recorded treatments and cannot be deleted")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete service")
		}
		return nil
	})
}

// EnsureMainServices inserts any missing main service. Migrations seed the
// same rows; this covers sqlite databases built by auto-migration.
func (s *service) EnsureMainServices(ctx context.Context) error {
	for _, title := range models.MainServiceTitles {
		_, err := s.repo.FindByTitle(ctx, title)
		if err == nil {
			continue
		}
		if !db.IsNotFound(err) {
			return fmt.Errorf("lookup service %q: %w", title, err)
		}
		row := &models.Service{Title: title, Description: mainServiceDescriptions[title]}
		if err := s.repo.Create(ctx, row); err != nil && !db.IsUniqueViolation(err, "") {
			return fmt.Errorf("seed service %q: %w", title, err)
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "title", title), "catalog.main_service_seeded")
		}
	}
	return nil
}

func (s *service) ensureTitleFree(ctx context.Context, title string, self uuid.UUID) error {
	existing, err := s.repo.FindByTitle(ctx, title)
	switch {
	case err == nil && existing.ID != self:
		return pkgerrors.FieldError("title", titleTakenMessage)
	case err == nil, db.IsNotFound(err):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check service title")
	}
}

func load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Service, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service")
	}
	return row, nil
}
