package service

import (
	"context"
	"strings"
	"time"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
)

// DepartmentService manages departments and role assignments.
type DepartmentService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
	authz       *Authorizer
}

// NewDepartmentService returns a new DepartmentService.
func NewDepartmentService(departments repository.DepartmentRepository, users repository.UserRepository, authz *Authorizer) *DepartmentService {
	return &DepartmentService{departments: departments, users: users, authz: authz}
}

func (s *DepartmentService) requireAdmin(ctx context.Context, actorID uint) error {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewUnauthorizedError("department management is restricted to ICT admins")
	}
	return nil
}

// DepartmentInput carries the fields for creating or updating a department.
type DepartmentInput struct {
	ActorID      uint `json:"-"`
	DepartmentID uint `json:"-"`

	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HeadUserID  *uint  `json:"head_user_id"`
	IsActive    *bool  `json:"is_active"`
}

func (in *DepartmentInput) validate() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if in.Code == "" || len(in.Code) > 20 {
		return models.NewValidationError("code is required and must not exceed 20 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("name is required")
	}
	return nil
}

// CreateDepartment creates a department with a unique code.
func (s *DepartmentService) CreateDepartment(ctx context.Context, input DepartmentInput) (*models.Department, error) {
	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	existing, err := s.departments.GetByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("a department with this code already exists")
	}

	dept := &models.Department{
		Code:        input.Code,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		HeadUserID:  input.HeadUserID,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// UpdateDepartment edits a department.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, input DepartmentInput) (*models.Department, error) {
	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}

	if input.Code != dept.Code {
		existing, err := s.departments.GetByCode(ctx, input.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != dept.ID {
			return nil, models.NewValidationError("a department with this code already exists")
		}
	}

	dept.Code = input.Code
	dept.Name = strings.TrimSpace(input.Name)
	dept.Description = input.Description
	dept.HeadUserID = input.HeadUserID
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}

	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// GetDepartment returns one department by ID.
func (s *DepartmentService) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	return s.departments.GetByID(ctx, id)
}

// ListDepartments lists departments, optionally only active ones.
func (s *DepartmentService) ListDepartments(ctx context.Context, activeOnly bool) ([]models.Department, error) {
	return s.departments.List(ctx, activeOnly)
}

// AssignRoleInput assigns a user a role within a department.
type AssignRoleInput struct {
	ActorID      uint `json:"-"`
	DepartmentID uint `json:"-"`

	UserID uint                  `json:"user_id"`
	Role   models.DepartmentRole `json:"role"`
}

// AssignRole gives a user a requester or approver role in a department. An
// existing assignment for the same pair is replaced.
func (s *DepartmentService) AssignRole(ctx context.Context, input AssignRoleInput) (*models.DepartmentUser, error) {
	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	switch input.Role {
	case models.DepartmentRoleRequester, models.DepartmentRoleApprover, models.DepartmentRoleBoth:
	default:
		return nil, models.NewValidationError("role must be requester, approver or both")
	}

	if _, err := s.departments.GetByID(ctx, input.DepartmentID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		return nil, err
	}

	membership := &models.DepartmentUser{
		UserID:       input.UserID,
		DepartmentID: input.DepartmentID,
		Role:         input.Role,
		IsActive:     true,
		AssignedByID: &input.ActorID,
		AssignedAt:   time.Now(),
	}
	if err := s.departments.AssignUser(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveRole removes a user's role assignment from a department.
func (s *DepartmentService) RemoveRole(ctx context.Context, actorID, departmentID, userID uint) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.departments.RemoveUser(ctx, userID, departmentID)
}

// ListMembers lists a department's role assignments.
func (s *DepartmentService) ListMembers(ctx context.Context, departmentID uint) ([]models.DepartmentUser, error) {
	return s.departments.ListMembers(ctx, departmentID)
}

// MyMemberships returns the actor's own department roles, for the UI to
// decide which screens to show.
func (s *DepartmentService) MyMemberships(ctx context.Context, userID uint) ([]models.DepartmentUser, error) {
	return s.departments.ListMembershipsForUser(ctx, userID)
}
