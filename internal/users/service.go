package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/security"
	"gorm.io/gorm"
)

const emailTakenMessage = "a user with this email already exists"

// Service exposes account management.
type Service interface {
	Register(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	Create(ctx context.Context, actor identity.Actor, input CreateUserInput) (*UserDTO, error)
	List(ctx context.Context, actor identity.Actor, input ListUsersInput) ([]UserDTO, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserDetailDTO, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error
	SetImage(ctx context.Context, actor identity.Actor, id uuid.UUID, upload images.Upload) (*UserDTO, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	DB     *db.Client
	Hasher passwordHasher
	Images images.Store
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	db     *db.Client
	repo   *Repository
	hasher passwordHasher
	images images.Store
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs a users service. Images may be nil when uploads are
// disabled.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		db:     params.DB,
		repo:   NewRepository(params.DB.DB()),
		hasher: params.Hasher,
		images: params.Images,
		logg:   params.Logger,
		now:    clock,
	}, nil
}

func (s *service) Register(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	input.Role = enums.RoleClient
	input.IsActive = nil
	return s.create(ctx, input)
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input CreateUserInput) (*UserDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

func (s *service) create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	fields := pkgerrors.FieldErrors{}
	email := models.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		fields.Add("email", "must be a valid email")
	}
	if err := security.ValidatePassword(input.Password); err != nil {
		fields.Add("password", err.Error())
	}
	if strings.TrimSpace(input.FirstName) == "" {
		fields.Add("first_name", "is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields.Add("last_name", "is required")
	}
	if !input.Role.IsValid() {
		fields.Add("role", "must be one of: staff, vet, client")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.FieldError("email", emailTakenMessage)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        trimmedPtr(input.Phone),
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.FieldError("email", emailTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	// the column default would override an explicit false on insert
	if input.IsActive != nil && !*input.IsActive {
		if err := s.repo.Update(ctx, user.ID, map[string]any{"is_active": false}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
		}
		user.IsActive = false
	}

	if input.Image != nil {
		s.attachImage(ctx, user, *input.Image)
	}

	return s.toDTO(ctx, user), nil
}

// attachImage uploads and links an image; failures leave the user without one.
func (s *service) attachImage(ctx context.Context, user *models.User, upload images.Upload) {
	if s.images == nil {
		return
	}
	key := images.Key("users", user.ID, upload.Extension)
	if err := s.images.Upload(ctx, key, upload.ContentType, upload.Data); err != nil {
		s.warn(ctx, "user.image_upload_failed", map[string]any{"user_id": user.ID.String(), "error": err.Error()})
		return
	}
	if err := s.repo.Update(ctx, user.ID, map[string]any{"image_key": key}); err != nil {
		s.warn(ctx, "user.image_link_failed", map[string]any{"user_id": user.ID.String(), "error": err.Error()})
		images.DeleteBestEffort(ctx, s.images, s.logg, &key)
		return
	}
	user.ImageKey = &key
}

func (s *service) List(ctx context.Context, actor identity.Actor, input ListUsersInput) ([]UserDTO, error) {
	if err := actor.RequireRole(enums.RoleStaff); err != nil {
		return nil, err
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.FieldError("role", "must be one of: staff, vet, client")
	}
	rows, err := s.repo.List(ctx, ListFilter{Role: input.Role, Active: input.Active})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *s.toDTO(ctx, &rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserDetailDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	if !canView(actor, id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot view this user")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pets, err := s.repo.ListPets(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user pets")
	}

	now := s.now()
	detail := &UserDetailDTO{
		UserDTO:   *s.toDTO(ctx, user),
		Pets:      make([]PetSummaryDTO, 0, len(pets)),
		TotalPets: len(pets),
	}
	for _, pet := range pets {
		summary := petSummary(pet, now)
		summary.ImageURL = images.ResolveURL(ctx, s.images, s.logg, pet.ImageKey)
		detail.Pets = append(detail.Pets, summary)
	}
	return detail, nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	if !canManage(actor, id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot modify this user")
	}
	if (input.Role != nil || input.IsActive != nil) && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can change roles or account status")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	fields := pkgerrors.FieldErrors{}

	if input.Email != nil {
		email := models.NormalizeEmail(*input.Email)
		switch {
		case email == "" || !strings.Contains(email, "@"):
			fields.Add("email", "must be a valid email")
		case email != user.Email:
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				fields.Add("email", emailTakenMessage)
			} else if !db.IsNotFound(err) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
			} else {
				updates["email"] = email
			}
		}
	}
	if input.FirstName != nil {
		if v := strings.TrimSpace(*input.FirstName); v == "" {
			fields.Add("first_name", "may not be blank")
		} else {
			updates["first_name"] = v
		}
	}
	if input.LastName != nil {
		if v := strings.TrimSpace(*input.LastName); v == "" {
			fields.Add("last_name", "may not be blank")
		} else {
			updates["last_name"] = v
		}
	}
	if input.Phone != nil {
		updates["phone"] = trimmedPtr(input.Phone)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			fields.Add("role", "must be one of: staff, vet, client")
		} else {
			updates["role"] = *input.Role
		}
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		if err := security.ValidatePassword(*input.Password); err != nil {
			fields.Add("password", err.Error())
		} else {
			hash, err := s.hasher.Hash(*input.Password)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
			}
			updates["password_hash"] = hash
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.FieldError("email", emailTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}

	user, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, user), nil
}

func (s *service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := actor.RequireAuthenticated(); err != nil {
		return err
	}
	if !canManage(actor, id) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete this user")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	pets, err := s.repo.ListPets(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user pets")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).DeleteCascade(ctx, id)
	})
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}

	for _, pet := range pets {
		images.DeleteBestEffort(ctx, s.images, s.logg, pet.ImageKey)
	}

	if s.images != nil && user.ImageKey != nil && *user.ImageKey != "" {
		if err := s.images.Delete(ctx, *user.ImageKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "user deleted but image cleanup failed")
		}
	}
	return nil
}

func (s *service) SetImage(ctx context.Context, actor identity.Actor, id uuid.UUID, upload images.Upload) (*UserDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	if !canManage(actor, id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot modify this user")
	}
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are disabled")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := user.ImageKey
	key := images.Key("users", user.ID, upload.Extension)
	if err := s.images.Upload(ctx, key, upload.ContentType, upload.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "image upload failed")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"image_key": key}); err != nil {
		images.DeleteBestEffort(ctx, s.images, s.logg, &key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link user image")
	}
	images.DeleteBestEffort(ctx, s.images, s.logg, previous)

	user.ImageKey = &key
	return s.toDTO(ctx, user), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) toDTO(ctx context.Context, user *models.User) *UserDTO {
	dto := FromModel(user)
	dto.ImageURL = images.ResolveURL(ctx, s.images, s.logg, user.ImageKey)
	return dto
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}

// canView: staff and vets see every account, clients only their own.
func canView(actor identity.Actor, target uuid.UUID) bool {
	switch actor.Role {
	case enums.RoleStaff, enums.RoleVet:
		return actor.Authenticated
	case enums.RoleClient:
		return actor.Is(target)
	default:
		return false
	}
}

// canManage: staff manage every account, everyone else only their own.
func canManage(actor identity.Actor, target uuid.UUID) bool {
	switch actor.Role {
	case enums.RoleStaff:
		return actor.Authenticated
	case enums.RoleVet, enums.RoleClient:
		return actor.Is(target)
	default:
		return false
	}
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
