package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"accessdesk/internal/lifecycle"
	"accessdesk/internal/models"
	"accessdesk/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows access request listings.
type RequestFilter struct {
	Status       models.RequestStatus
	RequestType  models.RequestType
	RequesterID  *uint
	DepartmentID *uint // requester's department
	Search       string
	FromDate     *time.Time
	ToDate       *time.Time
	Page         int
	PerPage      int
}

// StatusCounts aggregates request totals by lifecycle status.
type StatusCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Fulfilled int64 `json:"fulfilled"`
	Cancelled int64 `json:"cancelled"`
}

// AccessRequestRepository defines persistence operations for access requests.
type AccessRequestRepository interface {
	// Create persists a new request, allocating its request number inside
	// the same transaction.
	Create(ctx context.Context, req *models.AccessRequest) error
	GetByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	GetByNumber(ctx context.Context, number string) (*models.AccessRequest, error)
	// Update saves edits to a request's own fields (not lifecycle columns).
	Update(ctx context.Context, req *models.AccessRequest) error
	// ApplyChange applies a lifecycle transition as a guarded update and
	// records the audit row in the same transaction.
	ApplyChange(ctx context.Context, requestID uint, change lifecycle.Change, audit *models.RequestApproval) error
	List(ctx context.Context, filter RequestFilter) (models.Page[models.AccessRequest], error)
	// ListPendingForDepartments lists pending requests whose requester
	// belongs to one of the given departments, oldest first.
	ListPendingForDepartments(ctx context.Context, departmentIDs []uint, page, perPage int) (models.Page[models.AccessRequest], error)
	// ListFulfillmentQueue lists approved requests ordered by approval time.
	ListFulfillmentQueue(ctx context.Context, page, perPage int) (models.Page[models.AccessRequest], error)
	Approvals(ctx context.Context, requestID uint) ([]models.RequestApproval, error)
	CountByStatus(ctx context.Context, filter RequestFilter) (StatusCounts, error)
	// FulfilledBetween returns fulfilled requests in the window, for
	// processing-time statistics.
	FulfilledBetween(ctx context.Context, from, to time.Time) ([]models.AccessRequest, error)
	// CountApprovedBetween counts requests still sitting in approved whose
	// approval fell inside the window, optionally limited to requesters
	// from the given departments.
	CountApprovedBetween(ctx context.Context, departmentIDs []uint, from, to time.Time) (int64, error)
	// CountFulfilledBetween counts requests fulfilled inside the window,
	// optionally limited to the given request types.
	CountFulfilledBetween(ctx context.Context, requestTypes []models.RequestType, from, to time.Time) (int64, error)
	// CountByRequesterDepartment returns request totals keyed by the
	// requester's department.
	CountByRequesterDepartment(ctx context.Context) (map[uint]int64, error)
}

type accessRequestRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewAccessRequestRepository returns a new AccessRequestRepository implementation.
func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{
		db:     db,
		logger: observability.NewRepoLogger("access_requests"),
	}
}

func (r *accessRequestRepository) Create(ctx context.Context, req *models.AccessRequest) error {
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	year := req.SubmittedAt.Year()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := lockSequence(tx, year)
		if err != nil {
			return err
		}

		seq.LastNumber++
		if err := tx.Model(&models.RequestSequence{}).
			Where("year = ?", year).
			Update("last_number", seq.LastNumber).Error; err != nil {
			return models.NewInternalError(err)
		}

		req.RequestNumber = lifecycle.FormatRequestNumber(year, seq.LastNumber)
		req.Status = models.RequestStatusPending

		if err := tx.Create(req).Error; err != nil {
			if isUniqueConstraintError(err) {
				observability.NumberAllocationConflicts.Inc()
				return models.NewNumberConflictError(req.RequestNumber, err)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return err
	}

	r.logger.LogCreate(ctx, map[string]interface{}{
		"request_number": req.RequestNumber,
		"request_type":   req.RequestType,
	})
	return nil
}

// lockSequence locks the counter row for the year, seeding it from the
// highest issued number when the year has no row yet.
func lockSequence(tx *gorm.DB, year int) (*models.RequestSequence, error) {
	var seq models.RequestSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&seq).Error
	if err == nil {
		return &seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	last, err := highestIssuedNumber(tx, year)
	if err != nil {
		return nil, err
	}
	seq = models.RequestSequence{Year: year, LastNumber: last}
	if err := tx.Create(&seq).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, models.NewInternalError(err)
		}
		// Another transaction seeded the row first; take the lock on it.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", year).
			First(&seq).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &seq, nil
}

// highestIssuedNumber scans existing request numbers for the year, including
// soft-deleted rows so numbers are never reissued.
func highestIssuedNumber(tx *gorm.DB, year int) (uint, error) {
	prefix := lifecycle.FormatRequestNumber(year, 0)
	prefix = strings.TrimSuffix(prefix, "0000")

	var numbers []string
	err := tx.Unscoped().
		Model(&models.AccessRequest{}).
		Where("request_number LIKE ?", prefix+"%").
		Pluck("request_number", &numbers).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}

	var highest uint
	for _, n := range numbers {
		y, seq, err := lifecycle.ParseRequestNumber(n)
		if err != nil || y != year {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("RequesterDepartment").
		Preload("Template").
		Preload("Department").
		Preload("System").
		Preload("ApprovedBy").
		Preload("RejectedBy").
		Preload("FulfilledBy").
		Preload("CancelledBy").
		First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *accessRequestRepository) GetByNumber(ctx context.Context, number string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Template").
		Where("request_number = ?", number).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access request", number)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *accessRequestRepository) Update(ctx context.Context, req *models.AccessRequest) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"request_id": req.ID})
	return nil
}

func (r *accessRequestRepository) ApplyChange(ctx context.Context, requestID uint, change lifecycle.Change, audit *models.RequestApproval) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ?", requestID, change.ExpectedStatus).
			Updates(change.Assignments)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		// Zero rows means the status moved under us; the caller re-reads.
		if res.RowsAffected == 0 {
			return models.NewConcurrentModificationError(requestID)
		}
		if audit != nil {
			audit.RequestID = requestID
			if err := tx.Create(audit).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "apply_change")
		return err
	}

	r.logger.LogUpdate(ctx, map[string]interface{}{
		"request_id": requestID,
		"status":     change.NewStatus,
	})
	return nil
}

func (r *accessRequestRepository) applyFilter(q *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RequestType != "" {
		q = q.Where("request_type = ?", filter.RequestType)
	}
	if filter.RequesterID != nil {
		q = q.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.DepartmentID != nil {
		q = q.Where("requester_department_id = ?", *filter.DepartmentID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"LOWER(request_number) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like, like,
		)
	}
	if filter.FromDate != nil {
		q = q.Where("submitted_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		q = q.Where("submitted_at <= ?", *filter.ToDate)
	}
	return q
}

func (r *accessRequestRepository) List(ctx context.Context, filter RequestFilter) (models.Page[models.AccessRequest], error) {
	page, perPage := clampPage(filter.Page, filter.PerPage)

	q := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccessRequest{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	var requests []models.AccessRequest
	err := q.Preload("Requester").
		Preload("Template").
		Preload("RequesterDepartment").
		Order("submitted_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&requests).Error
	if err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	return models.NewPage(requests, total, page, perPage), nil
}

func (r *accessRequestRepository) ListPendingForDepartments(ctx context.Context, departmentIDs []uint, page, perPage int) (models.Page[models.AccessRequest], error) {
	if len(departmentIDs) == 0 {
		return models.NewPage([]models.AccessRequest{}, 0, 1, defaultPerPage), nil
	}
	page, perPage = clampPage(page, perPage)

	q := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("status = ? AND requester_department_id IN ?", models.RequestStatusPending, departmentIDs)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	var requests []models.AccessRequest
	err := q.Preload("Requester").
		Preload("Template").
		Preload("RequesterDepartment").
		Order("submitted_at ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&requests).Error
	if err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	return models.NewPage(requests, total, page, perPage), nil
}

func (r *accessRequestRepository) ListFulfillmentQueue(ctx context.Context, page, perPage int) (models.Page[models.AccessRequest], error) {
	page, perPage = clampPage(page, perPage)

	q := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("status = ?", models.RequestStatusApproved)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	var requests []models.AccessRequest
	err := q.Preload("Requester").
		Preload("Template").
		Preload("ApprovedBy").
		Order("approved_at ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&requests).Error
	if err != nil {
		return models.Page[models.AccessRequest]{}, models.NewInternalError(err)
	}

	return models.NewPage(requests, total, page, perPage), nil
}

func (r *accessRequestRepository) Approvals(ctx context.Context, requestID uint) ([]models.RequestApproval, error) {
	var approvals []models.RequestApproval
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("request_id = ?", requestID).
		Order("actioned_at ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return approvals, nil
}

func (r *accessRequestRepository) CountByStatus(ctx context.Context, filter RequestFilter) (StatusCounts, error) {
	type row struct {
		Status models.RequestStatus
		N      int64
	}
	var rows []row

	q := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccessRequest{}), filter)
	err := q.Select("status, COUNT(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return StatusCounts{}, models.NewInternalError(err)
	}

	var counts StatusCounts
	for _, rw := range rows {
		counts.Total += rw.N
		switch rw.Status {
		case models.RequestStatusPending:
			counts.Pending = rw.N
		case models.RequestStatusApproved:
			counts.Approved = rw.N
		case models.RequestStatusRejected:
			counts.Rejected = rw.N
		case models.RequestStatusFulfilled:
			counts.Fulfilled = rw.N
		case models.RequestStatusCancelled:
			counts.Cancelled = rw.N
		}
	}
	return counts, nil
}

func (r *accessRequestRepository) FulfilledBetween(ctx context.Context, from, to time.Time) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND fulfilled_at >= ? AND fulfilled_at <= ?", models.RequestStatusFulfilled, from, to).
		Find(&requests).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *accessRequestRepository) CountApprovedBetween(ctx context.Context, departmentIDs []uint, from, to time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("status = ? AND approved_at >= ? AND approved_at <= ?", models.RequestStatusApproved, from, to)
	if len(departmentIDs) > 0 {
		q = q.Where("requester_department_id IN ?", departmentIDs)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *accessRequestRepository) CountFulfilledBetween(ctx context.Context, requestTypes []models.RequestType, from, to time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("status = ? AND fulfilled_at >= ? AND fulfilled_at <= ?", models.RequestStatusFulfilled, from, to)
	if len(requestTypes) > 0 {
		q = q.Where("request_type IN ?", requestTypes)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *accessRequestRepository) CountByRequesterDepartment(ctx context.Context) (map[uint]int64, error) {
	type row struct {
		DepartmentID *uint
		N            int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Select("requester_department_id as department_id, COUNT(*) as n").
		Group("requester_department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		if rw.DepartmentID != nil {
			counts[*rw.DepartmentID] = rw.N
		}
	}
	return counts, nil
}
