package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"accessdesk/internal/lifecycle"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestRepoStub is a stub for repository.AccessRequestRepository.
type requestRepoStub struct {
	createFn           func(context.Context, *models.AccessRequest) error
	getByIDFn          func(context.Context, uint) (*models.AccessRequest, error)
	getByNumberFn      func(context.Context, string) (*models.AccessRequest, error)
	updateFn           func(context.Context, *models.AccessRequest) error
	applyChangeFn      func(context.Context, uint, lifecycle.Change, *models.RequestApproval) error
	listFn             func(context.Context, repository.RequestFilter) (models.Page[models.AccessRequest], error)
	listPendingFn      func(context.Context, []uint, int, int) (models.Page[models.AccessRequest], error)
	listQueueFn        func(context.Context, int, int) (models.Page[models.AccessRequest], error)
	approvalsFn        func(context.Context, uint) ([]models.RequestApproval, error)
	countByStatusFn    func(context.Context, repository.RequestFilter) (repository.StatusCounts, error)
	fulfilledBetweenFn func(context.Context, time.Time, time.Time) ([]models.AccessRequest, error)
	countApprovedFn    func(context.Context, []uint, time.Time, time.Time) (int64, error)
	countFulfilledFn   func(context.Context, []models.RequestType, time.Time, time.Time) (int64, error)
	countByDeptFn      func(context.Context) (map[uint]int64, error)
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.AccessRequest) error {
	return s.createFn(ctx, req)
}
func (s *requestRepoStub) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *requestRepoStub) GetByNumber(ctx context.Context, number string) (*models.AccessRequest, error) {
	return s.getByNumberFn(ctx, number)
}
func (s *requestRepoStub) Update(ctx context.Context, req *models.AccessRequest) error {
	return s.updateFn(ctx, req)
}
func (s *requestRepoStub) ApplyChange(ctx context.Context, requestID uint, change lifecycle.Change, audit *models.RequestApproval) error {
	return s.applyChangeFn(ctx, requestID, change, audit)
}
func (s *requestRepoStub) List(ctx context.Context, filter repository.RequestFilter) (models.Page[models.AccessRequest], error) {
	return s.listFn(ctx, filter)
}
func (s *requestRepoStub) ListPendingForDepartments(ctx context.Context, departmentIDs []uint, page, perPage int) (models.Page[models.AccessRequest], error) {
	return s.listPendingFn(ctx, departmentIDs, page, perPage)
}
func (s *requestRepoStub) ListFulfillmentQueue(ctx context.Context, page, perPage int) (models.Page[models.AccessRequest], error) {
	return s.listQueueFn(ctx, page, perPage)
}
func (s *requestRepoStub) Approvals(ctx context.Context, requestID uint) ([]models.RequestApproval, error) {
	return s.approvalsFn(ctx, requestID)
}
func (s *requestRepoStub) CountByStatus(ctx context.Context, filter repository.RequestFilter) (repository.StatusCounts, error) {
	return s.countByStatusFn(ctx, filter)
}
func (s *requestRepoStub) FulfilledBetween(ctx context.Context, from, to time.Time) ([]models.AccessRequest, error) {
	return s.fulfilledBetweenFn(ctx, from, to)
}
func (s *requestRepoStub) CountApprovedBetween(ctx context.Context, departmentIDs []uint, from, to time.Time) (int64, error) {
	return s.countApprovedFn(ctx, departmentIDs, from, to)
}
func (s *requestRepoStub) CountFulfilledBetween(ctx context.Context, requestTypes []models.RequestType, from, to time.Time) (int64, error) {
	return s.countFulfilledFn(ctx, requestTypes, from, to)
}
func (s *requestRepoStub) CountByRequesterDepartment(ctx context.Context) (map[uint]int64, error) {
	return s.countByDeptFn(ctx)
}

func noopRequestRepo() *requestRepoStub {
	return &requestRepoStub{
		createFn: func(_ context.Context, req *models.AccessRequest) error {
			req.ID = 1
			req.RequestNumber = "REQ-2026-0001"
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: id, Status: models.RequestStatusPending}, nil
		},
		getByNumberFn: func(_ context.Context, number string) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: 1, RequestNumber: number, Status: models.RequestStatusPending}, nil
		},
		updateFn:      func(_ context.Context, _ *models.AccessRequest) error { return nil },
		applyChangeFn: func(_ context.Context, _ uint, _ lifecycle.Change, _ *models.RequestApproval) error { return nil },
		listFn: func(_ context.Context, _ repository.RequestFilter) (models.Page[models.AccessRequest], error) {
			return models.Page[models.AccessRequest]{}, nil
		},
		listPendingFn: func(_ context.Context, _ []uint, _, _ int) (models.Page[models.AccessRequest], error) {
			return models.Page[models.AccessRequest]{}, nil
		},
		listQueueFn: func(_ context.Context, _, _ int) (models.Page[models.AccessRequest], error) {
			return models.Page[models.AccessRequest]{}, nil
		},
		approvalsFn:     func(_ context.Context, _ uint) ([]models.RequestApproval, error) { return nil, nil },
		countByStatusFn: func(_ context.Context, _ repository.RequestFilter) (repository.StatusCounts, error) { return repository.StatusCounts{}, nil },
		fulfilledBetweenFn: func(_ context.Context, _, _ time.Time) ([]models.AccessRequest, error) {
			return nil, nil
		},
		countApprovedFn: func(_ context.Context, _ []uint, _, _ time.Time) (int64, error) { return 0, nil },
		countFulfilledFn: func(_ context.Context, _ []models.RequestType, _, _ time.Time) (int64, error) {
			return 0, nil
		},
		countByDeptFn: func(_ context.Context) (map[uint]int64, error) { return nil, nil },
	}
}

// templateRepoStub is a stub for repository.TemplateRepository.
type templateRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.Template, error)
	getByMnemonicFn func(context.Context, string, uint) (*models.Template, error)
	createFn        func(context.Context, *models.Template) error
	updateFn        func(context.Context, *models.Template) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, repository.TemplateFilter) (models.Page[models.Template], error)
	countsFn        func(context.Context) (int64, int64, error)
	countByDeptFn   func(context.Context) (map[uint]int64, error)
}

func (s *templateRepoStub) GetByID(ctx context.Context, id uint) (*models.Template, error) {
	return s.getByIDFn(ctx, id)
}
func (s *templateRepoStub) GetByMnemonic(ctx context.Context, mnemonic string, departmentID uint) (*models.Template, error) {
	return s.getByMnemonicFn(ctx, mnemonic, departmentID)
}
func (s *templateRepoStub) Create(ctx context.Context, tpl *models.Template) error {
	return s.createFn(ctx, tpl)
}
func (s *templateRepoStub) Update(ctx context.Context, tpl *models.Template) error {
	return s.updateFn(ctx, tpl)
}
func (s *templateRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *templateRepoStub) List(ctx context.Context, filter repository.TemplateFilter) (models.Page[models.Template], error) {
	return s.listFn(ctx, filter)
}
func (s *templateRepoStub) Counts(ctx context.Context) (int64, int64, error) {
	return s.countsFn(ctx)
}
func (s *templateRepoStub) CountByDepartment(ctx context.Context) (map[uint]int64, error) {
	return s.countByDeptFn(ctx)
}

func noopTemplateRepo() *templateRepoStub {
	return &templateRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Template, error) {
			return &models.Template{ID: id, DepartmentID: 1, IsActive: true}, nil
		},
		getByMnemonicFn: func(_ context.Context, _ string, _ uint) (*models.Template, error) { return nil, nil },
		createFn:        func(_ context.Context, tpl *models.Template) error { tpl.ID = 1; return nil },
		updateFn:        func(_ context.Context, _ *models.Template) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn: func(_ context.Context, _ repository.TemplateFilter) (models.Page[models.Template], error) {
			return models.Page[models.Template]{}, nil
		},
		countsFn:      func(_ context.Context) (int64, int64, error) { return 0, 0, nil },
		countByDeptFn: func(_ context.Context) (map[uint]int64, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

// userRepoWith returns a stub where GetByID serves the given users by ID.
func userRepoWith(users ...*models.User) *userRepoStub {
	byID := make(map[uint]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if u, ok := byID[id]; ok {
				return u, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, user *models.User) error { user.ID = 99; return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// departmentRepoStub is a stub for repository.DepartmentRepository.
type departmentRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.Department, error)
	getByCodeFn       func(context.Context, string) (*models.Department, error)
	createFn          func(context.Context, *models.Department) error
	updateFn          func(context.Context, *models.Department) error
	listFn            func(context.Context, bool) ([]models.Department, error)
	assignUserFn      func(context.Context, *models.DepartmentUser) error
	removeUserFn      func(context.Context, uint, uint) error
	getMembershipFn   func(context.Context, uint, uint) (*models.DepartmentUser, error)
	listForUserFn     func(context.Context, uint) ([]models.DepartmentUser, error)
	listMembersFn     func(context.Context, uint) ([]models.DepartmentUser, error)
	approverDeptIDsFn func(context.Context, uint) ([]uint, error)
}

func (s *departmentRepoStub) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	return s.getByIDFn(ctx, id)
}
func (s *departmentRepoStub) GetByCode(ctx context.Context, code string) (*models.Department, error) {
	return s.getByCodeFn(ctx, code)
}
func (s *departmentRepoStub) Create(ctx context.Context, dept *models.Department) error {
	return s.createFn(ctx, dept)
}
func (s *departmentRepoStub) Update(ctx context.Context, dept *models.Department) error {
	return s.updateFn(ctx, dept)
}
func (s *departmentRepoStub) List(ctx context.Context, activeOnly bool) ([]models.Department, error) {
	return s.listFn(ctx, activeOnly)
}
func (s *departmentRepoStub) AssignUser(ctx context.Context, membership *models.DepartmentUser) error {
	return s.assignUserFn(ctx, membership)
}
func (s *departmentRepoStub) RemoveUser(ctx context.Context, userID, departmentID uint) error {
	return s.removeUserFn(ctx, userID, departmentID)
}
func (s *departmentRepoStub) GetMembership(ctx context.Context, userID, departmentID uint) (*models.DepartmentUser, error) {
	return s.getMembershipFn(ctx, userID, departmentID)
}
func (s *departmentRepoStub) ListMembershipsForUser(ctx context.Context, userID uint) ([]models.DepartmentUser, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *departmentRepoStub) ListMembers(ctx context.Context, departmentID uint) ([]models.DepartmentUser, error) {
	return s.listMembersFn(ctx, departmentID)
}
func (s *departmentRepoStub) ApproverDepartmentIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.approverDeptIDsFn(ctx, userID)
}

// departmentRepoWith returns a stub serving the given memberships, keyed by
// user and department.
func departmentRepoWith(memberships ...*models.DepartmentUser) *departmentRepoStub {
	stub := &departmentRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Department, error) {
			return &models.Department{ID: id, IsActive: true}, nil
		},
		getByCodeFn: func(_ context.Context, _ string) (*models.Department, error) { return nil, nil },
		createFn:    func(_ context.Context, dept *models.Department) error { dept.ID = 1; return nil },
		updateFn:    func(_ context.Context, _ *models.Department) error { return nil },
		listFn:      func(_ context.Context, _ bool) ([]models.Department, error) { return nil, nil },
		assignUserFn: func(_ context.Context, membership *models.DepartmentUser) error {
			membership.ID = 1
			return nil
		},
		removeUserFn:  func(_ context.Context, _, _ uint) error { return nil },
		listMembersFn: func(_ context.Context, _ uint) ([]models.DepartmentUser, error) { return nil, nil },
	}
	stub.getMembershipFn = func(_ context.Context, userID, departmentID uint) (*models.DepartmentUser, error) {
		for _, m := range memberships {
			if m.UserID == userID && m.DepartmentID == departmentID {
				return m, nil
			}
		}
		return nil, nil
	}
	stub.listForUserFn = func(_ context.Context, userID uint) ([]models.DepartmentUser, error) {
		var out []models.DepartmentUser
		for _, m := range memberships {
			if m.UserID == userID {
				out = append(out, *m)
			}
		}
		return out, nil
	}
	stub.approverDeptIDsFn = func(_ context.Context, userID uint) ([]uint, error) {
		var ids []uint
		for _, m := range memberships {
			if m.UserID == userID && m.IsActive && m.Role.CanApprove() {
				ids = append(ids, m.DepartmentID)
			}
		}
		return ids, nil
	}
	return stub
}

// notifierStub records published events.
type notifierStub struct {
	created      []uint
	transitioned []models.ApprovalAction
}

func (n *notifierStub) RequestCreated(_ context.Context, req *models.AccessRequest) {
	n.created = append(n.created, req.ID)
}
func (n *notifierStub) RequestTransitioned(_ context.Context, _ *models.AccessRequest, action models.ApprovalAction, _ uint) {
	n.transitioned = append(n.transitioned, action)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
