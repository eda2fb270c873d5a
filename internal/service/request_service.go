package service

import (
	"context"
	"strings"
	"time"

	"accessdesk/internal/cache"
	"accessdesk/internal/lifecycle"
	"accessdesk/internal/models"
	"accessdesk/internal/observability"
	"accessdesk/internal/repository"
	"accessdesk/internal/validation"
)

// Notifier publishes request lifecycle events to interested listeners.
// Implementations must not block; delivery is best effort.
type Notifier interface {
	RequestCreated(ctx context.Context, req *models.AccessRequest)
	RequestTransitioned(ctx context.Context, req *models.AccessRequest, action models.ApprovalAction, actorID uint)
}

// RequestService owns the access request lifecycle.
type RequestService struct {
	requests  repository.AccessRequestRepository
	templates repository.TemplateRepository
	users     repository.UserRepository
	authz     *Authorizer
	notifier  Notifier
	now       func() time.Time
}

// NewRequestService returns a new RequestService. notifier may be nil.
func NewRequestService(
	requests repository.AccessRequestRepository,
	templates repository.TemplateRepository,
	users repository.UserRepository,
	authz *Authorizer,
	notifier Notifier,
) *RequestService {
	return &RequestService{
		requests:  requests,
		templates: templates,
		users:     users,
		authz:     authz,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CreateRequestInput carries the fields a requester submits.
type CreateRequestInput struct {
	RequesterID  uint                   `json:"-"`
	TemplateID   uint                   `json:"template_id"`
	DepartmentID *uint                  `json:"department_id"`
	SystemID     uint                   `json:"system_id"`
	RequestType  models.RequestType     `json:"request_type"`
	Priority     models.RequestPriority `json:"priority"`

	PayrollNumber string `json:"payroll_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	JobTitle      string `json:"job_title"`

	ProviderGroup     string             `json:"provider_group"`
	ProviderType      string             `json:"provider_type"`
	Specialty         string             `json:"specialty"`
	Service           string             `json:"service"`
	Admitting         *bool              `json:"admitting"`
	OrderingPhysician *bool              `json:"ordering_physician"`
	SignOrders        *models.OrderScope `json:"sign_orders"`
	CosignOrders      *models.OrderScope `json:"cosign_orders"`

	Justification string `json:"justification"`
}

func (in *CreateRequestInput) validate() error {
	if in.TemplateID == 0 {
		return models.NewValidationError("template_id is required")
	}
	if !models.ValidRequestType(in.RequestType) {
		return models.NewValidationError("invalid request type")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if !models.ValidPriority(in.Priority) {
		return models.NewValidationError("invalid priority")
	}
	if err := validation.ValidatePersonName("first name", in.FirstName); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePersonName("last name", in.LastName); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePayrollNumber(in.PayrollNumber); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateJustification(in.Justification); err != nil {
		return models.NewValidationError(err.Error())
	}
	if in.SignOrders != nil && !models.ValidOrderScope(*in.SignOrders) {
		return models.NewValidationError("invalid sign_orders scope")
	}
	if in.CosignOrders != nil && !models.ValidOrderScope(*in.CosignOrders) {
		return models.NewValidationError("invalid cosign_orders scope")
	}
	return nil
}

// CreateRequest validates the input, checks the template and the requester's
// department role, and persists the request in pending status.
func (s *RequestService) CreateRequest(ctx context.Context, input CreateRequestInput) (*models.AccessRequest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	tpl, err := s.templates.GetByID(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, models.NewValidationError("template is no longer active")
	}
	if tpl.RequiresCOSReview {
		if input.SignOrders == nil || input.CosignOrders == nil {
			return nil, models.NewValidationError("sign_orders and cosign_orders are required for clinician templates")
		}
	}

	allowed, err := s.authz.CanRequestFor(ctx, input.RequesterID, tpl.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewUnauthorizedError("you do not hold a requester role for this department")
	}

	departmentID := input.DepartmentID
	if departmentID == nil {
		departmentID = &tpl.DepartmentID
	}

	if _, err := s.users.GetByID(ctx, input.RequesterID); err != nil {
		return nil, err
	}
	requesterDept := tpl.DepartmentID

	systemID := input.SystemID
	if systemID == 0 {
		systemID = 1
	}

	req := &models.AccessRequest{
		RequesterID:           input.RequesterID,
		RequesterDepartmentID: &requesterDept,
		TemplateID:            tpl.ID,
		DepartmentID:          departmentID,
		SystemID:              systemID,
		RequestType:           input.RequestType,
		PayrollNumber:         strings.TrimSpace(input.PayrollNumber),
		FirstName:             strings.TrimSpace(input.FirstName),
		LastName:              strings.TrimSpace(input.LastName),
		Email:                 strings.ToLower(strings.TrimSpace(input.Email)),
		Username:              strings.TrimSpace(input.Username),
		JobTitle:              strings.TrimSpace(input.JobTitle),
		ProviderGroup:         input.ProviderGroup,
		ProviderType:          input.ProviderType,
		Specialty:             input.Specialty,
		Service:               input.Service,
		Admitting:             input.Admitting,
		OrderingPhysician:     input.OrderingPhysician,
		SignOrders:            input.SignOrders,
		CosignOrders:          input.CosignOrders,
		Justification:         strings.TrimSpace(input.Justification),
		Priority:              input.Priority,
		SubmittedAt:           s.now(),
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	observability.RecordRequestCreated(string(req.RequestType))
	cache.InvalidateDashboards(ctx)
	if s.notifier != nil {
		s.notifier.RequestCreated(ctx, req)
	}
	return s.requests.GetByID(ctx, req.ID)
}

// UpdateRequestInput carries edits to a pending request's own fields.
type UpdateRequestInput struct {
	RequestID uint `json:"-"`
	ActorID   uint `json:"-"`

	PayrollNumber *string `json:"payroll_number"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Email         *string `json:"email"`
	Username      *string `json:"username"`
	JobTitle      *string `json:"job_title"`
	Justification *string `json:"justification"`

	Priority *models.RequestPriority `json:"priority"`
}

// UpdateRequest edits a pending request. Only the requester or an admin may
// edit, and only while the request is still pending.
func (s *RequestService) UpdateRequest(ctx context.Context, input UpdateRequestInput) (*models.AccessRequest, error) {
	req, err := s.requests.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, models.NewInvalidTransitionError("update", req.Status)
	}
	if req.RequesterID != input.ActorID {
		admin, err := s.authz.IsAdmin(ctx, input.ActorID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewUnauthorizedError("only the requester may edit this request")
		}
	}

	if input.FirstName != nil {
		if err := validation.ValidatePersonName("first name", *input.FirstName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		req.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		if err := validation.ValidatePersonName("last name", *input.LastName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		req.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		if err := validation.ValidateEmail(*input.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		req.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.PayrollNumber != nil {
		if err := validation.ValidatePayrollNumber(*input.PayrollNumber); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		req.PayrollNumber = strings.TrimSpace(*input.PayrollNumber)
	}
	if input.Username != nil {
		req.Username = strings.TrimSpace(*input.Username)
	}
	if input.JobTitle != nil {
		req.JobTitle = strings.TrimSpace(*input.JobTitle)
	}
	if input.Justification != nil {
		if err := validation.ValidateJustification(*input.Justification); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		req.Justification = strings.TrimSpace(*input.Justification)
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, models.NewValidationError("invalid priority")
		}
		req.Priority = *input.Priority
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// TransitionInput carries a lifecycle action on a request.
type TransitionInput struct {
	RequestID uint   `json:"-"`
	ActorID   uint   `json:"-"`
	Note      string `json:"note"`
}

// Approve moves a pending request to approved. The actor must hold an
// approver role for the requester's department or be an admin, and may not
// decide their own request.
func (s *RequestService) Approve(ctx context.Context, input TransitionInput) (*models.AccessRequest, error) {
	return s.transition(ctx, input, models.ApprovalActionApproved, func(req *models.AccessRequest) (bool, error) {
		if req.RequesterID == input.ActorID {
			return false, nil
		}
		return s.authz.CanApproveFor(ctx, input.ActorID, req.RequesterDepartmentID)
	}, func(req *models.AccessRequest) (lifecycle.Change, error) {
		return lifecycle.Approve(req, input.ActorID, input.Note, s.now())
	})
}

// Reject moves a pending request to rejected. A reason is mandatory, and the
// actor may not decide their own request.
func (s *RequestService) Reject(ctx context.Context, input TransitionInput) (*models.AccessRequest, error) {
	return s.transition(ctx, input, models.ApprovalActionRejected, func(req *models.AccessRequest) (bool, error) {
		if req.RequesterID == input.ActorID {
			return false, nil
		}
		return s.authz.CanApproveFor(ctx, input.ActorID, req.RequesterDepartmentID)
	}, func(req *models.AccessRequest) (lifecycle.Change, error) {
		return lifecycle.Reject(req, input.ActorID, input.Note, s.now())
	})
}

// Fulfill moves an approved request to fulfilled. Only admins provision
// access.
func (s *RequestService) Fulfill(ctx context.Context, input TransitionInput) (*models.AccessRequest, error) {
	return s.transition(ctx, input, models.ApprovalActionFulfilled, func(req *models.AccessRequest) (bool, error) {
		return s.authz.IsAdmin(ctx, input.ActorID)
	}, func(req *models.AccessRequest) (lifecycle.Change, error) {
		return lifecycle.Fulfill(req, input.ActorID, input.Note, s.now())
	})
}

// Cancel withdraws a pending or approved request. Only the requester or an
// admin may cancel.
func (s *RequestService) Cancel(ctx context.Context, input TransitionInput) (*models.AccessRequest, error) {
	return s.transition(ctx, input, models.ApprovalActionCancelled, func(req *models.AccessRequest) (bool, error) {
		if req.RequesterID == input.ActorID {
			return true, nil
		}
		return s.authz.IsAdmin(ctx, input.ActorID)
	}, func(req *models.AccessRequest) (lifecycle.Change, error) {
		return lifecycle.Cancel(req, input.ActorID, input.Note, s.now())
	})
}

func (s *RequestService) transition(
	ctx context.Context,
	input TransitionInput,
	action models.ApprovalAction,
	authorize func(req *models.AccessRequest) (bool, error),
	build func(req *models.AccessRequest) (lifecycle.Change, error),
) (*models.AccessRequest, error) {
	req, err := s.requests.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	allowed, err := authorize(req)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewUnauthorizedError("you are not allowed to " + string(action) + " this request")
	}

	change, err := build(req)
	if err != nil {
		observability.RecordTransition(string(action), "invalid")
		return nil, err
	}

	audit := &models.RequestApproval{
		ApproverID: input.ActorID,
		Action:     action,
		Comments:   input.Note,
		ActionedAt: s.now(),
	}

	if err := s.requests.ApplyChange(ctx, req.ID, change, audit); err != nil {
		observability.RecordTransition(string(action), "conflict")
		return nil, err
	}
	observability.RecordTransition(string(action), "ok")
	cache.InvalidateDashboards(ctx)

	updated, err := s.requests.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.RequestTransitioned(ctx, updated, action, input.ActorID)
	}
	return updated, nil
}

// GetRequest returns a single request if the actor may see it.
func (s *RequestService) GetRequest(ctx context.Context, actorID, requestID uint) (*models.AccessRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.authz.CanView(ctx, actorID, req)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewUnauthorizedError("you may not view this request")
	}
	return req, nil
}

// GetRequestByNumber resolves a request number and applies the same view
// check as GetRequest.
func (s *RequestService) GetRequestByNumber(ctx context.Context, actorID uint, number string) (*models.AccessRequest, error) {
	req, err := s.requests.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.GetRequest(ctx, actorID, req.ID)
}

// ListRequests lists requests visible to the actor. Admins see everything;
// other users are scoped to their own submissions.
func (s *RequestService) ListRequests(ctx context.Context, actorID uint, filter repository.RequestFilter) (models.Page[models.AccessRequest], error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return models.Page[models.AccessRequest]{}, err
	}
	if !admin {
		filter.RequesterID = &actorID
	}
	return s.requests.List(ctx, filter)
}

// PendingApprovals lists the pending requests awaiting the actor's review,
// oldest first.
func (s *RequestService) PendingApprovals(ctx context.Context, actorID uint, page, perPage int) (models.Page[models.AccessRequest], error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return models.Page[models.AccessRequest]{}, err
	}
	if admin {
		return s.requests.List(ctx, repository.RequestFilter{
			Status:  models.RequestStatusPending,
			Page:    page,
			PerPage: perPage,
		})
	}

	deptIDs, err := s.authz.departments.ApproverDepartmentIDs(ctx, actorID)
	if err != nil {
		return models.Page[models.AccessRequest]{}, err
	}
	return s.requests.ListPendingForDepartments(ctx, deptIDs, page, perPage)
}

// FulfillmentQueue lists approved requests awaiting provisioning. Admin only.
func (s *RequestService) FulfillmentQueue(ctx context.Context, actorID uint, page, perPage int) (models.Page[models.AccessRequest], error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return models.Page[models.AccessRequest]{}, err
	}
	if !admin {
		return models.Page[models.AccessRequest]{}, models.NewUnauthorizedError("fulfillment queue is restricted to ICT admins")
	}
	return s.requests.ListFulfillmentQueue(ctx, page, perPage)
}

// RequestHistory returns the audit trail of a request, oldest action first.
func (s *RequestService) RequestHistory(ctx context.Context, actorID, requestID uint) ([]models.RequestApproval, error) {
	if _, err := s.GetRequest(ctx, actorID, requestID); err != nil {
		return nil, err
	}
	return s.requests.Approvals(ctx, requestID)
}
