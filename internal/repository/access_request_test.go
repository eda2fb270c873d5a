package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"accessdesk/internal/lifecycle"
	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "nurse.lead", false)
	dept := seedDepartment(t, db, "MED")
	tpl := seedTemplate(t, db, "RN.WARD", dept.ID)

	submitted := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first := newRequest(requester, dept.ID, tpl.ID, submitted)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "REQ-2026-0001", first.RequestNumber)
	assert.Equal(t, models.RequestStatusPending, first.Status)

	second := newRequest(requester, dept.ID, tpl.ID, submitted)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "REQ-2026-0002", second.RequestNumber)
}

func TestCreateRestartsSequencePerYear(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "ward.clerk", false)
	dept := seedDepartment(t, db, "SUR")
	tpl := seedTemplate(t, db, "CLERK", dept.ID)

	old := newRequest(requester, dept.ID, tpl.ID, time.Date(2025, 12, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, old))
	assert.Equal(t, "REQ-2025-0001", old.RequestNumber)

	fresh := newRequest(requester, dept.ID, tpl.ID, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, fresh))
	assert.Equal(t, "REQ-2026-0001", fresh.RequestNumber)
}

func TestCreateSeedsSequenceFromExistingNumbers(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "ict.admin", true)
	dept := seedDepartment(t, db, "ICT")
	tpl := seedTemplate(t, db, "SYS.ADMIN", dept.ID)

	// Simulate a pre-existing dataset with no counter row.
	legacy := newRequest(requester, dept.ID, tpl.ID, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	legacy.RequestNumber = "REQ-2026-0041"
	legacy.Status = models.RequestStatusFulfilled
	require.NoError(t, db.Create(legacy).Error)

	next := newRequest(requester, dept.ID, tpl.ID, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, "REQ-2026-0042", next.RequestNumber)
}

func TestCreateManyRequestsAllDistinct(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "hr.officer", false)
	dept := seedDepartment(t, db, "HR")
	tpl := seedTemplate(t, db, "HR.VIEW", dept.ID)
	submitted := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	// One shared connection so every goroutine sees the same in-memory
	// database and the sequence row races through the locked path.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
		errs []error
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := newRequest(requester, dept.ID, tpl.ID, submitted)
			err := repo.Create(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[req.RequestNumber] = true
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, seen, 50)
	assert.True(t, seen["REQ-2026-0050"])
}

func TestApplyChangeGuardsStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "requester", false)
	approver := seedUser(t, db, "approver", false)
	dept := seedDepartment(t, db, "LAB")
	tpl := seedTemplate(t, db, "LAB.TECH", dept.ID)

	req := newRequest(requester, dept.ID, tpl.ID, time.Now())
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now()
	change, err := lifecycle.Approve(req, approver.ID, "ok", now)
	require.NoError(t, err)

	audit := &models.RequestApproval{
		ApproverID: approver.ID,
		Action:     models.ApprovalActionApproved,
		Comments:   "ok",
		ActionedAt: now,
	}
	require.NoError(t, repo.ApplyChange(ctx, req.ID, change, audit))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedByID)
	assert.Equal(t, approver.ID, *got.ApprovedByID)
	assert.NotNil(t, got.ApprovedAt)

	approvals, err := repo.Approvals(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, models.ApprovalActionApproved, approvals[0].Action)

	// Replaying the same transition against a stale snapshot loses the race.
	err = repo.ApplyChange(ctx, req.ID, change, nil)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeConcurrentModification, appErr.Code)
}

func TestListFiltersAndSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", false)
	bob := seedUser(t, db, "bob", false)
	med := seedDepartment(t, db, "MED")
	sur := seedDepartment(t, db, "SUR")
	tpl := seedTemplate(t, db, "RN.WARD", med.ID)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	r1 := newRequest(alice, med.ID, tpl.ID, base)
	r1.LastName = "Otieno"
	require.NoError(t, repo.Create(ctx, r1))

	r2 := newRequest(bob, sur.ID, tpl.ID, base.Add(24*time.Hour))
	r2.RequestType = models.RequestTypeTermination
	require.NoError(t, repo.Create(ctx, r2))

	// Move r2 to approved so status filtering has something to split on.
	change, err := lifecycle.Approve(r2, alice.ID, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.ApplyChange(ctx, r2.ID, change, nil))

	page, err := repo.List(ctx, RequestFilter{Status: models.RequestStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, r1.ID, page.Items[0].ID)

	page, err = repo.List(ctx, RequestFilter{RequesterID: &bob.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, r2.ID, page.Items[0].ID)

	page, err = repo.List(ctx, RequestFilter{DepartmentID: &sur.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	page, err = repo.List(ctx, RequestFilter{RequestType: models.RequestTypeTermination})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	// Case-insensitive search across name and number.
	page, err = repo.List(ctx, RequestFilter{Search: "otieno"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	page, err = repo.List(ctx, RequestFilter{Search: r2.RequestNumber})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	from := base.Add(12 * time.Hour)
	page, err = repo.List(ctx, RequestFilter{FromDate: &from})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, r2.ID, page.Items[0].ID)
}

func TestListPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "pager", false)
	dept := seedDepartment(t, db, "PHY")
	tpl := seedTemplate(t, db, "PT", dept.ID)
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		req := newRequest(requester, dept.ID, tpl.ID, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, req))
	}

	page, err := repo.List(ctx, RequestFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)
	// Newest first.
	assert.Equal(t, "REQ-2026-0003", page.Items[0].RequestNumber)
}

func TestPendingForDepartmentsAndFulfillmentQueue(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "req", false)
	approver := seedUser(t, db, "appr", false)
	med := seedDepartment(t, db, "MED")
	sur := seedDepartment(t, db, "SUR")
	tpl := seedTemplate(t, db, "RN.WARD", med.ID)

	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	older := newRequest(requester, med.ID, tpl.ID, base)
	require.NoError(t, repo.Create(ctx, older))
	newer := newRequest(requester, med.ID, tpl.ID, base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, newer))
	other := newRequest(requester, sur.ID, tpl.ID, base)
	require.NoError(t, repo.Create(ctx, other))

	pending, err := repo.ListPendingForDepartments(ctx, []uint{med.ID}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(2), pending.Total)
	// Oldest first so approvers work the backlog in order.
	assert.Equal(t, older.ID, pending.Items[0].ID)

	empty, err := repo.ListPendingForDepartments(ctx, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Total)

	// Approve both; queue orders by approval time.
	for i, req := range []*models.AccessRequest{newer, older} {
		change, err := lifecycle.Approve(req, approver.ID, "", base.Add(time.Duration(i+10)*time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.ApplyChange(ctx, req.ID, change, nil))
	}

	queue, err := repo.ListFulfillmentQueue(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(2), queue.Total)
	assert.Equal(t, newer.ID, queue.Items[0].ID, "earliest approval first")
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "counter", false)
	actor := seedUser(t, db, "actor", false)
	dept := seedDepartment(t, db, "RAD")
	tpl := seedTemplate(t, db, "RAD.TECH", dept.ID)
	now := time.Now()

	statuses := []func(r *models.AccessRequest) (lifecycle.Change, error){
		nil, // stays pending
		func(r *models.AccessRequest) (lifecycle.Change, error) { return lifecycle.Approve(r, actor.ID, "", now) },
		func(r *models.AccessRequest) (lifecycle.Change, error) {
			return lifecycle.Reject(r, actor.ID, "not justified", now)
		},
		func(r *models.AccessRequest) (lifecycle.Change, error) {
			return lifecycle.Cancel(r, actor.ID, "no longer needed", now)
		},
	}

	for i, transition := range statuses {
		req := newRequest(requester, dept.ID, tpl.ID, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, req))
		if transition == nil {
			continue
		}
		change, err := transition(req)
		require.NoError(t, err)
		require.NoError(t, repo.ApplyChange(ctx, req.ID, change, nil))
	}

	counts, err := repo.CountByStatus(ctx, RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Total)
	assert.Equal(t, int64(1), counts.Pending)
	assert.Equal(t, int64(1), counts.Approved)
	assert.Equal(t, int64(1), counts.Rejected)
	assert.Equal(t, int64(1), counts.Cancelled)
	assert.Equal(t, int64(0), counts.Fulfilled)
}

func TestGetByNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "finder", false)
	dept := seedDepartment(t, db, "ED")
	tpl := seedTemplate(t, db, "ED.RN", dept.ID)

	req := newRequest(requester, dept.ID, tpl.ID, time.Now())
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByNumber(ctx, req.RequestNumber)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = repo.GetByNumber(ctx, "REQ-1999-0001")
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestSequencePastFourDigits(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "bulk", false)
	dept := seedDepartment(t, db, "BULK")
	tpl := seedTemplate(t, db, "BULK.X", dept.ID)
	submitted := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.RequestSequence{Year: 2026, LastNumber: 9999}).Error)

	req := newRequest(requester, dept.ID, tpl.ID, submitted)
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, fmt.Sprintf("REQ-%d-%d", 2026, 10000), req.RequestNumber)
}

func TestDashboardAggregates(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccessRequestRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "stats.clerk", false)
	actor := seedUser(t, db, "stats.actor", false)
	ed := seedDepartment(t, db, "ED")
	icu := seedDepartment(t, db, "ICU")
	edTpl := seedTemplate(t, db, "ED.RN", ed.ID)
	icuTpl := seedTemplate(t, db, "ICU.RN", icu.ID)

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Approved this month in ED.
	approved := newRequest(requester, ed.ID, edTpl.ID, now.Add(-72*time.Hour))
	require.NoError(t, repo.Create(ctx, approved))
	change, err := lifecycle.Approve(approved, actor.ID, "", now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyChange(ctx, approved.ID, change, nil))

	// Fulfilled termination this month in ICU.
	fulfilled := newRequest(requester, icu.ID, icuTpl.ID, monthStart)
	fulfilled.RequestType = models.RequestTypeTermination
	require.NoError(t, repo.Create(ctx, fulfilled))
	change, err = lifecycle.Approve(fulfilled, actor.ID, "", monthStart.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyChange(ctx, fulfilled.ID, change, nil))
	fulfilled.Status = models.RequestStatusApproved
	change, err = lifecycle.Fulfill(fulfilled, actor.ID, "", monthStart.Add(48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyChange(ctx, fulfilled.ID, change, nil))

	// Still pending in ED.
	pending := newRequest(requester, ed.ID, edTpl.ID, now.Add(-time.Hour))
	require.NoError(t, repo.Create(ctx, pending))

	n, err := repo.CountApprovedBetween(ctx, []uint{ed.ID}, monthStart, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The fulfilled request no longer counts as approved.
	n, err = repo.CountApprovedBetween(ctx, []uint{icu.ID}, monthStart, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.CountFulfilledBetween(ctx, nil, monthStart, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountFulfilledBetween(ctx,
		[]models.RequestType{models.RequestTypeReactivation, models.RequestTypeTermination}, monthStart, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountFulfilledBetween(ctx,
		[]models.RequestType{models.RequestTypeNewAccess}, monthStart, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	byDept, err := repo.CountByRequesterDepartment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byDept[ed.ID])
	assert.Equal(t, int64(1), byDept[icu.ID])
}
