package service

import (
	"context"
	"strings"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/validation"
)

// TemplateService manages access templates. Mutations are admin only;
// listings are open to any authenticated user picking a template.
type TemplateService struct {
	templates   repository.TemplateRepository
	departments repository.DepartmentRepository
	authz       *Authorizer
}

// NewTemplateService returns a new TemplateService.
func NewTemplateService(templates repository.TemplateRepository, departments repository.DepartmentRepository, authz *Authorizer) *TemplateService {
	return &TemplateService{templates: templates, departments: departments, authz: authz}
}

// TemplateInput carries the fields for creating or updating a template.
type TemplateInput struct {
	ActorID    uint `json:"-"`
	TemplateID uint `json:"-"`

	Mnemonic          string            `json:"mnemonic"`
	Name              string            `json:"name"`
	DepartmentID      uint              `json:"department_id"`
	Category          string            `json:"category"`
	Description       string            `json:"description"`
	EHRAccessLevel    string            `json:"ehr_access_level"`
	EHRModuleAccess   models.StringList `json:"ehr_module_access"`
	EHRPermissions    models.StringList `json:"ehr_permissions"`
	SystemAccess      models.StringList `json:"system_access"`
	RequiresCOSReview bool              `json:"requires_cos_review"`
	IsActive          *bool             `json:"is_active"`
}

func (in *TemplateInput) validate() error {
	in.Mnemonic = strings.ToUpper(strings.TrimSpace(in.Mnemonic))
	if err := validation.ValidateMnemonic(in.Mnemonic); err != nil {
		return models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("name is required")
	}
	if in.DepartmentID == 0 {
		return models.NewValidationError("department_id is required")
	}
	return nil
}

func (s *TemplateService) requireAdmin(ctx context.Context, actorID uint) error {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewUnauthorizedError("template management is restricted to ICT admins")
	}
	return nil
}

// CreateTemplate creates a template. The mnemonic must be unique within the
// department.
func (s *TemplateService) CreateTemplate(ctx context.Context, input TemplateInput) (*models.Template, error) {
	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	if _, err := s.departments.GetByID(ctx, input.DepartmentID); err != nil {
		return nil, err
	}
	existing, err := s.templates.GetByMnemonic(ctx, input.Mnemonic, input.DepartmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("a template with this mnemonic already exists in the department")
	}

	tpl := &models.Template{
		Mnemonic:          input.Mnemonic,
		Name:              strings.TrimSpace(input.Name),
		DepartmentID:      input.DepartmentID,
		Category:          strings.TrimSpace(input.Category),
		Description:       input.Description,
		EHRAccessLevel:    input.EHRAccessLevel,
		EHRModuleAccess:   input.EHRModuleAccess,
		EHRPermissions:    input.EHRPermissions,
		SystemAccess:      input.SystemAccess,
		RequiresCOSReview: input.RequiresCOSReview,
		IsActive:          true,
		CreatedByID:       &input.ActorID,
		Version:           1,
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// UpdateTemplate edits a template and bumps its version.
func (s *TemplateService) UpdateTemplate(ctx context.Context, input TemplateInput) (*models.Template, error) {
	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	tpl, err := s.templates.GetByID(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}

	if input.Mnemonic != tpl.Mnemonic || input.DepartmentID != tpl.DepartmentID {
		existing, err := s.templates.GetByMnemonic(ctx, input.Mnemonic, input.DepartmentID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != tpl.ID {
			return nil, models.NewValidationError("a template with this mnemonic already exists in the department")
		}
	}

	tpl.Mnemonic = input.Mnemonic
	tpl.Name = strings.TrimSpace(input.Name)
	tpl.DepartmentID = input.DepartmentID
	tpl.Category = strings.TrimSpace(input.Category)
	tpl.Description = input.Description
	tpl.EHRAccessLevel = input.EHRAccessLevel
	tpl.EHRModuleAccess = input.EHRModuleAccess
	tpl.EHRPermissions = input.EHRPermissions
	tpl.SystemAccess = input.SystemAccess
	tpl.RequiresCOSReview = input.RequiresCOSReview
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}
	tpl.Version++

	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// DeleteTemplate soft-deletes a template. Existing requests keep their
// reference to it.
func (s *TemplateService) DeleteTemplate(ctx context.Context, actorID, templateID uint) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.templates.Delete(ctx, templateID)
}

// GetTemplate returns one template by ID.
func (s *TemplateService) GetTemplate(ctx context.Context, id uint) (*models.Template, error) {
	return s.templates.GetByID(ctx, id)
}

// ListTemplates lists templates for pickers and admin screens.
func (s *TemplateService) ListTemplates(ctx context.Context, filter repository.TemplateFilter) (models.Page[models.Template], error) {
	return s.templates.List(ctx, filter)
}
