package vaccines

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the vaccine catalog and vaccination records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RecordFilter narrows ListRecords. Nil fields are ignored.
type RecordFilter struct {
	PetID     *uuid.UUID
	VaccineID *uuid.UUID
	OwnerID   *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, vaccine *models.Vaccine) error {
	return r.db.WithContext(ctx).Create(vaccine).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vaccine, error) {
	var vaccine models.Vaccine
	if err := r.db.WithContext(ctx).First(&vaccine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vaccine, nil
}

// FindByName matches names case-insensitively.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Vaccine, error) {
	var vaccine models.Vaccine
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&vaccine).Error
	if err != nil {
		return nil, err
	}
	return &vaccine, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Vaccine, error) {
	var out []models.Vaccine
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Vaccine{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vaccine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountRecords returns how many vaccination records reference the vaccine.
func (r *Repository) CountRecords(ctx context.Context, vaccineID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vaccinated{}).Where("vaccine_id = ?", vaccineID).Count(&count).Error
	return count, err
}

func (r *Repository) CreateRecord(ctx context.Context, record *models.Vaccinated) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

// FindRecord loads a vaccination with its vaccine and pet.
func (r *Repository) FindRecord(ctx context.Context, id uuid.UUID) (*models.Vaccinated, error) {
	var record models.Vaccinated
	if err := r.db.WithContext(ctx).
		Preload("Vaccine").
		Preload("Pet").
		First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords returns vaccinations newest first.
func (r *Repository) ListRecords(ctx context.Context, filter RecordFilter) ([]models.Vaccinated, error) {
	query := r.db.WithContext(ctx).Model(&models.Vaccinated{}).Preload("Vaccine").Preload("Pet")
	if filter.PetID != nil {
		query = query.Where("vaccinations.pet_id = ?", *filter.PetID)
	}
	if filter.VaccineID != nil {
		query = query.Where("vaccinations.vaccine_id = ?", *filter.VaccineID)
	}
	if filter.OwnerID != nil {
		query = query.Where("vaccinations.pet_id IN (?)",
			r.db.WithContext(ctx).Model(&models.Pet{}).Select("id").Where("user_id = ?", *filter.OwnerID))
	}
	var out []models.Vaccinated
	if err := query.Order("vaccinations.date DESC, vaccinations.created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByPet is the pet's vaccination history, newest first.
func (r *Repository) ListByPet(ctx context.Context, petID uuid.UUID) ([]models.Vaccinated, error) {
	return r.ListRecords(ctx, RecordFilter{PetID: &petID})
}

func (r *Repository) UpdateRecord(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Vaccinated{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vaccinated{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PetOwner returns the owner of petID.
func (r *Repository) PetOwner(ctx context.Context, petID uuid.UUID) (uuid.UUID, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&pet, "id = ?", petID).Error; err != nil {
		return uuid.Nil, err
	}
	return pet.UserID, nil
}
