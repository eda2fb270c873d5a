package repository

import (
	"context"
	"errors"
	"strings"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"

	"gorm.io/gorm"
)

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	DepartmentID *uint
	Category     string
	ActiveOnly   bool
	Search       string
	Page         int
	PerPage      int
}

// TemplateRepository defines persistence operations for access templates.
type TemplateRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Template, error)
	GetByMnemonic(ctx context.Context, mnemonic string, departmentID uint) (*models.Template, error)
	Create(ctx context.Context, tpl *models.Template) error
	Update(ctx context.Context, tpl *models.Template) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter TemplateFilter) (models.Page[models.Template], error)
	// Counts returns the total and active template tallies.
	Counts(ctx context.Context) (total, active int64, err error)
	// CountByDepartment returns template totals keyed by department.
	CountByDepartment(ctx context.Context) (map[uint]int64, error)
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository returns a new TemplateRepository implementation.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetByID(ctx context.Context, id uint) (*models.Template, error) {
	var tpl models.Template
	key := cache.TemplateKey(id)

	err := cache.CacheAside(ctx, key, &tpl, cache.TemplateTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("Department").First(&tpl, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Template", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) GetByMnemonic(ctx context.Context, mnemonic string, departmentID uint) (*models.Template, error) {
	var tpl models.Template
	q := r.db.WithContext(ctx).Where("mnemonic = ? AND department_id = ?", mnemonic, departmentID)
	if err := q.First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &tpl, nil
}

func (r *templateRepository) Create(ctx context.Context, tpl *models.Template) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Template mnemonic already exists for this department")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *templateRepository) Update(ctx context.Context, tpl *models.Template) error {
	if err := r.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTemplate(ctx, tpl.ID)
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Template{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Template", id)
	}
	cache.InvalidateTemplate(ctx, id)
	return nil
}

func (r *templateRepository) List(ctx context.Context, filter TemplateFilter) (models.Page[models.Template], error) {
	page, perPage := clampPage(filter.Page, filter.PerPage)

	q := r.db.WithContext(ctx).Model(&models.Template{})
	if filter.DepartmentID != nil {
		q = q.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(mnemonic) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[models.Template]{}, models.NewInternalError(err)
	}

	var templates []models.Template
	err := q.Preload("Department").
		Order("mnemonic ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&templates).Error
	if err != nil {
		return models.Page[models.Template]{}, models.NewInternalError(err)
	}

	return models.NewPage(templates, total, page, perPage), nil
}

func (r *templateRepository) Counts(ctx context.Context) (total, active int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.Template{}).Count(&total).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	err = r.db.WithContext(ctx).Model(&models.Template{}).
		Where("is_active = ?", true).Count(&active).Error
	if err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return total, active, nil
}

func (r *templateRepository) CountByDepartment(ctx context.Context) (map[uint]int64, error) {
	type row struct {
		DepartmentID uint
		N            int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Template{}).
		Select("department_id, COUNT(*) as n").
		Group("department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		counts[rw.DepartmentID] = rw.N
	}
	return counts, nil
}
