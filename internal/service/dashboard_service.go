package service

import (
	"context"
	"time"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
)

// processingWindow is how far back fulfilled requests count toward the
// average processing time.
const processingWindow = 90 * 24 * time.Hour

// DashboardStats is the aggregate view served to dashboards.
type DashboardStats struct {
	Counts            repository.StatusCounts `json:"counts"`
	AvgProcessingDays *float64                `json:"avg_processing_days"`
	FulfilledInWindow int                     `json:"fulfilled_in_window"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

// DashboardService computes request statistics. Results are cached briefly
// since dashboards are polled far more often than requests change.
type DashboardService struct {
	requests    repository.AccessRequestRepository
	templates   repository.TemplateRepository
	departments repository.DepartmentRepository
	authz       *Authorizer
	now         func() time.Time
}

// NewDashboardService returns a new DashboardService.
func NewDashboardService(
	requests repository.AccessRequestRepository,
	templates repository.TemplateRepository,
	departments repository.DepartmentRepository,
	authz *Authorizer,
) *DashboardService {
	return &DashboardService{
		requests:    requests,
		templates:   templates,
		departments: departments,
		authz:       authz,
		now:         time.Now,
	}
}

// Overview returns system-wide stats for admins, or the actor's own request
// stats otherwise.
func (s *DashboardService) Overview(ctx context.Context, actorID uint) (*DashboardStats, error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if admin {
		return s.cachedStats(ctx, cache.DashboardKey("global", 0), repository.RequestFilter{})
	}
	return s.cachedStats(ctx, cache.DashboardKey("user", actorID), repository.RequestFilter{RequesterID: &actorID})
}

// DepartmentOverview returns stats scoped to one department's requesters.
// Only that department's approvers and admins may see it.
func (s *DashboardService) DepartmentOverview(ctx context.Context, actorID, departmentID uint) (*DashboardStats, error) {
	allowed, err := s.authz.CanApproveFor(ctx, actorID, &departmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewUnauthorizedError("you may not view this department's dashboard")
	}
	return s.cachedStats(ctx, cache.DashboardKey("department", departmentID), repository.RequestFilter{DepartmentID: &departmentID})
}

// RequesterDashboard is the view for users submitting requests.
type RequesterDashboard struct {
	Counts      repository.StatusCounts `json:"counts"`
	Departments []models.Department     `json:"departments"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// ApproverDashboard is the view for departmental approvers.
type ApproverDashboard struct {
	DepartmentIDs     []uint    `json:"department_ids"`
	PendingApprovals  int64     `json:"pending_approvals"`
	ApprovedToday     int64     `json:"approved_today"`
	ApprovedThisMonth int64     `json:"approved_this_month"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// HRDashboard tracks the joiner/leaver request types.
type HRDashboard struct {
	PendingReactivations int64     `json:"pending_reactivations"`
	PendingTerminations  int64     `json:"pending_terminations"`
	CompletedThisMonth   int64     `json:"completed_this_month"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// DepartmentActivity is one row of the per-department breakdown on the ICT
// dashboard.
type DepartmentActivity struct {
	DepartmentID uint   `json:"department_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Requests     int64  `json:"requests"`
	Templates    int64  `json:"templates"`
}

// ICTDashboard is the fulfillment-side view for admins.
type ICTDashboard struct {
	AwaitingFulfillment int64                `json:"awaiting_fulfillment"`
	FulfilledToday      int64                `json:"fulfilled_today"`
	FulfilledThisMonth  int64                `json:"fulfilled_this_month"`
	TotalTemplates      int64                `json:"total_templates"`
	ActiveTemplates     int64                `json:"active_templates"`
	Departments         []DepartmentActivity `json:"departments"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// RequesterView returns the actor's own request counts plus the departments
// they may submit for.
func (s *DashboardService) RequesterView(ctx context.Context, actorID uint) (*RequesterDashboard, error) {
	view := &RequesterDashboard{}
	err := cache.CacheAside(ctx, cache.DashboardKey("requester", actorID), view, cache.DashboardTTL, func() error {
		counts, err := s.requests.CountByStatus(ctx, repository.RequestFilter{RequesterID: &actorID})
		if err != nil {
			return err
		}
		memberships, err := s.departments.ListMembershipsForUser(ctx, actorID)
		if err != nil {
			return err
		}
		depts := []models.Department{}
		for _, m := range memberships {
			if m.Role.CanRequest() && m.Department != nil {
				depts = append(depts, *m.Department)
			}
		}
		view.Counts = counts
		view.Departments = depts
		view.GeneratedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ApproverView returns approval workload stats across the actor's approver
// departments. Admins see every department.
func (s *DashboardService) ApproverView(ctx context.Context, actorID uint) (*ApproverDashboard, error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var deptIDs []uint
	if admin {
		depts, err := s.departments.List(ctx, false)
		if err != nil {
			return nil, err
		}
		for _, d := range depts {
			deptIDs = append(deptIDs, d.ID)
		}
	} else {
		deptIDs, err = s.departments.ApproverDepartmentIDs(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if len(deptIDs) == 0 {
			return nil, models.NewUnauthorizedError("you are not an approver for any department")
		}
	}

	view := &ApproverDashboard{}
	err = cache.CacheAside(ctx, cache.DashboardKey("approver", actorID), view, cache.DashboardTTL, func() error {
		pending, err := s.requests.ListPendingForDepartments(ctx, deptIDs, 1, 1)
		if err != nil {
			return err
		}
		now := s.now()
		dayStart := startOfDay(now)
		approvedToday, err := s.requests.CountApprovedBetween(ctx, deptIDs, dayStart, now)
		if err != nil {
			return err
		}
		approvedThisMonth, err := s.requests.CountApprovedBetween(ctx, deptIDs, startOfMonth(now), now)
		if err != nil {
			return err
		}
		view.DepartmentIDs = deptIDs
		view.PendingApprovals = pending.Total
		view.ApprovedToday = approvedToday
		view.ApprovedThisMonth = approvedThisMonth
		view.GeneratedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// HRView returns stats over the reactivation and termination request types.
// Admin only.
func (s *DashboardService) HRView(ctx context.Context, actorID uint) (*HRDashboard, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	view := &HRDashboard{}
	err := cache.CacheAside(ctx, cache.DashboardKey("hr", 0), view, cache.DashboardTTL, func() error {
		reactivations, err := s.requests.CountByStatus(ctx, repository.RequestFilter{RequestType: models.RequestTypeReactivation})
		if err != nil {
			return err
		}
		terminations, err := s.requests.CountByStatus(ctx, repository.RequestFilter{RequestType: models.RequestTypeTermination})
		if err != nil {
			return err
		}
		now := s.now()
		completed, err := s.requests.CountFulfilledBetween(ctx,
			[]models.RequestType{models.RequestTypeReactivation, models.RequestTypeTermination},
			startOfMonth(now), now)
		if err != nil {
			return err
		}
		view.PendingReactivations = reactivations.Pending
		view.PendingTerminations = terminations.Pending
		view.CompletedThisMonth = completed
		view.GeneratedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ICTView returns fulfillment throughput plus the per-department breakdown.
// Admin only.
func (s *DashboardService) ICTView(ctx context.Context, actorID uint) (*ICTDashboard, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	view := &ICTDashboard{}
	err := cache.CacheAside(ctx, cache.DashboardKey("ict", 0), view, cache.DashboardTTL, func() error {
		counts, err := s.requests.CountByStatus(ctx, repository.RequestFilter{})
		if err != nil {
			return err
		}
		now := s.now()
		fulfilledToday, err := s.requests.CountFulfilledBetween(ctx, nil, startOfDay(now), now)
		if err != nil {
			return err
		}
		fulfilledThisMonth, err := s.requests.CountFulfilledBetween(ctx, nil, startOfMonth(now), now)
		if err != nil {
			return err
		}
		totalTpls, activeTpls, err := s.templates.Counts(ctx)
		if err != nil {
			return err
		}
		depts, err := s.departments.List(ctx, false)
		if err != nil {
			return err
		}
		requestsByDept, err := s.requests.CountByRequesterDepartment(ctx)
		if err != nil {
			return err
		}
		templatesByDept, err := s.templates.CountByDepartment(ctx)
		if err != nil {
			return err
		}

		activity := make([]DepartmentActivity, 0, len(depts))
		for _, d := range depts {
			activity = append(activity, DepartmentActivity{
				DepartmentID: d.ID,
				Code:         d.Code,
				Name:         d.Name,
				Requests:     requestsByDept[d.ID],
				Templates:    templatesByDept[d.ID],
			})
		}

		view.AwaitingFulfillment = counts.Approved
		view.FulfilledToday = fulfilledToday
		view.FulfilledThisMonth = fulfilledThisMonth
		view.TotalTemplates = totalTpls
		view.ActiveTemplates = activeTpls
		view.Departments = activity
		view.GeneratedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *DashboardService) requireAdmin(ctx context.Context, actorID uint) error {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewUnauthorizedError("admin access required")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func (s *DashboardService) cachedStats(ctx context.Context, key string, filter repository.RequestFilter) (*DashboardStats, error) {
	var stats DashboardStats
	err := cache.CacheAside(ctx, key, &stats, cache.DashboardTTL, func() error {
		computed, err := s.computeStats(ctx, filter)
		if err != nil {
			return err
		}
		stats = *computed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DashboardService) computeStats(ctx context.Context, filter repository.RequestFilter) (*DashboardStats, error) {
	counts, err := s.requests.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fulfilled, err := s.requests.FulfilledBetween(ctx, now.Add(-processingWindow), now)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{Counts: counts, GeneratedAt: now}

	// Averages run in Go rather than SQL so postgres and sqlite agree.
	var sum, n int
	for i := range fulfilled {
		req := &fulfilled[i]
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.DepartmentID != nil &&
			(req.RequesterDepartmentID == nil || *req.RequesterDepartmentID != *filter.DepartmentID) {
			continue
		}
		if days := req.ProcessingTimeDays(); days != nil {
			sum += *days
			n++
		}
	}
	stats.FulfilledInWindow = n
	if n > 0 {
		avg := float64(sum) / float64(n)
		stats.AvgProcessingDays = &avg
	}
	return stats, nil
}
