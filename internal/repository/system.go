package repository

import (
	"context"
	"errors"

	"accessdesk/internal/models"

	"gorm.io/gorm"
)

// SystemRepository defines persistence operations for target systems.
type SystemRepository interface {
	GetByID(ctx context.Context, id uint) (*models.System, error)
	GetByCode(ctx context.Context, code string) (*models.System, error)
	Create(ctx context.Context, system *models.System) error
	Update(ctx context.Context, system *models.System) error
	List(ctx context.Context, activeOnly bool) ([]models.System, error)
}

type systemRepository struct {
	db *gorm.DB
}

// NewSystemRepository returns a new SystemRepository implementation.
func NewSystemRepository(db *gorm.DB) SystemRepository {
	return &systemRepository{db: db}
}

func (r *systemRepository) GetByID(ctx context.Context, id uint) (*models.System, error) {
	var system models.System
	if err := r.db.WithContext(ctx).First(&system, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("System", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &system, nil
}

func (r *systemRepository) GetByCode(ctx context.Context, code string) (*models.System, error) {
	var system models.System
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&system).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &system, nil
}

func (r *systemRepository) Create(ctx context.Context, system *models.System) error {
	if err := r.db.WithContext(ctx).Create(system).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("System code already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *systemRepository) Update(ctx context.Context, system *models.System) error {
	if err := r.db.WithContext(ctx).Save(system).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *systemRepository) List(ctx context.Context, activeOnly bool) ([]models.System, error) {
	var systems []models.System
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&systems).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return systems, nil
}
