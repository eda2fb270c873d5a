package repository

import (
	"context"
	"errors"
	"time"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"

	"gorm.io/gorm"
)

// DepartmentRepository defines persistence operations for departments and
// department memberships.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Department, error)
	GetByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, dept *models.Department) error
	Update(ctx context.Context, dept *models.Department) error
	List(ctx context.Context, activeOnly bool) ([]models.Department, error)

	AssignUser(ctx context.Context, membership *models.DepartmentUser) error
	RemoveUser(ctx context.Context, userID, departmentID uint) error
	GetMembership(ctx context.Context, userID, departmentID uint) (*models.DepartmentUser, error)
	ListMembershipsForUser(ctx context.Context, userID uint) ([]models.DepartmentUser, error)
	ListMembers(ctx context.Context, departmentID uint) ([]models.DepartmentUser, error)
	ApproverDepartmentIDs(ctx context.Context, userID uint) ([]uint, error)
}

type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository returns a new DepartmentRepository implementation.
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	var dept models.Department
	key := cache.DepartmentKey(id)

	err := cache.CacheAside(ctx, key, &dept, cache.DepartmentTTL, func() error {
		if err := r.db.WithContext(ctx).First(&dept, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Department", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) GetByCode(ctx context.Context, code string) (*models.Department, error) {
	var dept models.Department
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&dept).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &dept, nil
}

func (r *departmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if err := r.db.WithContext(ctx).Create(dept).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Department code already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *models.Department) error {
	if err := r.db.WithContext(ctx).Save(dept).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDepartment(ctx, dept.ID)
	return nil
}

func (r *departmentRepository) List(ctx context.Context, activeOnly bool) ([]models.Department, error) {
	var depts []models.Department
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&depts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return depts, nil
}

func (r *departmentRepository) AssignUser(ctx context.Context, membership *models.DepartmentUser) error {
	if membership.AssignedAt.IsZero() {
		membership.AssignedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User is already assigned to this department")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *departmentRepository) RemoveUser(ctx context.Context, userID, departmentID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND department_id = ?", userID, departmentID).
		Delete(&models.DepartmentUser{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Department membership", userID)
	}
	return nil
}

func (r *departmentRepository) GetMembership(ctx context.Context, userID, departmentID uint) (*models.DepartmentUser, error) {
	var membership models.DepartmentUser
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND department_id = ?", userID, departmentID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &membership, nil
}

func (r *departmentRepository) ListMembershipsForUser(ctx context.Context, userID uint) ([]models.DepartmentUser, error) {
	var memberships []models.DepartmentUser
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *departmentRepository) ListMembers(ctx context.Context, departmentID uint) ([]models.DepartmentUser, error) {
	var memberships []models.DepartmentUser
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("department_id = ? AND is_active = ?", departmentID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

// ApproverDepartmentIDs returns the departments in which the user holds an
// approver role.
func (r *departmentRepository) ApproverDepartmentIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.DepartmentUser{}).
		Where("user_id = ? AND is_active = ? AND role IN ?", userID, true,
			[]models.DepartmentRole{models.DepartmentRoleApprover, models.DepartmentRoleBoth}).
		Pluck("department_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
