package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results. Nil fields are ignored.
type ListFilter struct {
	Role   *enums.Role
	Active *bool
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	var out []models.User
	if err := query.Order("last_name ASC, first_name ASC, email ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveByRole returns every active user holding role.
func (r *Repository) ListActiveByRole(ctx context.Context, role enums.Role) ([]models.User, error) {
	active := true
	return r.List(ctx, ListFilter{Role: &role, Active: &active})
}

// Update applies column updates to a user.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ListPets returns the user's pets ordered by name.
func (r *Repository) ListPets(ctx context.Context, userID uuid.UUID) ([]models.Pet, error) {
	var pets []models.Pet
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}

// DeleteCascade removes the user and everything they own. It must run inside
// a transaction; the steps are explicit so they hold without FK cascades.
func (r *Repository) DeleteCascade(ctx context.Context, userID uuid.UUID) error {
	db := r.db.WithContext(ctx)

	petIDs := func() *gorm.DB {
		return db.Model(&models.Pet{}).Select("id").Where("user_id = ?", userID)
	}
	appointmentIDs := func() *gorm.DB {
		return db.Model(&models.Appointment{}).Select("id").
			Where("user_id = ? OR pet_id IN (?)", userID, petIDs())
	}

	steps := []func() error{
		func() error {
			return db.Where("appointment_id IN (?)", appointmentIDs()).Delete(&models.Treatment{}).Error
		},
		func() error {
			return db.Where("user_id = ? OR pet_id IN (?)", userID, petIDs()).Delete(&models.Appointment{}).Error
		},
		func() error {
			return db.Where("pet_id IN (?)", petIDs()).Delete(&models.Vaccinated{}).Error
		},
		func() error {
			return db.Where("user_id = ?", userID).Delete(&models.Pet{}).Error
		},
		func() error {
			return db.Where("vet_id = ?", userID).Delete(&models.Schedule{}).Error
		},
		func() error {
			return db.Where("vet_id = ?", userID).Delete(&models.Holiday{}).Error
		},
		func() error {
			return db.Model(&models.Appointment{}).
				Where("assigned_vet_id = ?", userID).
				UpdateColumn("assigned_vet_id", nil).Error
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	res := db.Where("id = ?", userID).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
