package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists clinic services.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, service *models.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).First(&service, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// FindByTitle matches titles case-insensitively.
func (r *Repository) FindByTitle(ctx context.Context, title string) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).
		Where("LOWER(title) = ?", strings.ToLower(strings.TrimSpace(title))).
		First(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Service, error) {
	var out []models.Service
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Service{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountTreatments returns how many treatments reference the service.
func (r *Repository) CountTreatments(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Treatment{}).Where("service_id = ?", serviceID).Count(&count).Error
	return count, err
}
