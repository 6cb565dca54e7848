package pets

import (
	"context"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists pets.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List. A nil OwnerID lists every pet.
type ListFilter struct {
	OwnerID *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, pet *models.Pet) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(pet).Error
}

// FindByID loads a pet with its owner.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).Preload("User").First(&pet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Pet, error) {
	query := r.db.WithContext(ctx).Model(&models.Pet{}).Preload("User")
	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}
	var out []models.Pet
	if err := query.Order("name ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Pet{}).Where("id = ?", id).Updates(updates).Error
}

// OwnerExists reports whether a user row exists for id.
func (r *Repository) OwnerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteCascade removes the pet with its vaccinations, appointments and their
// treatments. It must run inside a transaction.
func (r *Repository) DeleteCascade(ctx context.Context, petID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	appointmentIDs := func() *gorm.DB {
		return db.Model(&models.Appointment{}).Select("id").Where("pet_id = ?", petID)
	}

	if err := db.Where("appointment_id IN (?)", appointmentIDs()).Delete(&models.Treatment{}).Error; err != nil {
		return err
	}
	if err := db.Where("pet_id = ?", petID).Delete(&models.Appointment{}).Error; err != nil {
		return err
	}
	if err := db.Where("pet_id = ?", petID).Delete(&models.Vaccinated{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", petID).Delete(&models.Pet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
