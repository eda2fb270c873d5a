package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"accessdesk/internal/lifecycle"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumRequests int
	// MaxDays is how far back generated submission times are spread.
	MaxDays     int
	ShouldClean bool
	DryRun      bool
	SkipBcrypt  bool
	// ManifestPath overrides the embedded baseline manifest.
	ManifestPath string
}

// statusDistribution is the percentage split of generated requests across
// lifecycle states. Remainder goes to pending.
type statusDistribution struct {
	Pending   int
	Approved  int
	Rejected  int
	Fulfilled int
	Cancelled int
}

var defaultDistribution = statusDistribution{
	Pending:   25,
	Approved:  20,
	Rejected:  10,
	Fulfilled: 40,
	Cancelled: 5,
}

func computeCounts(total int, d statusDistribution) (pending, approved, rejected, fulfilled, cancelled int) {
	approved = total * d.Approved / 100
	rejected = total * d.Rejected / 100
	fulfilled = total * d.Fulfilled / 100
	cancelled = total * d.Cancelled / 100
	pending = total - approved - rejected - fulfilled - cancelled
	return
}

// Seed populates the database with demo data: baseline reference rows, staff
// accounts with department roles, and a request backlog spread across the
// lifecycle states.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d requests...", opts.NumUsers, opts.NumRequests)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	manifest, err := loadManifest(opts)
	if err != nil {
		return err
	}
	if opts.DryRun {
		log.Printf("[dry-run] baseline manifest: %d departments, %d systems, %d templates (no DB write)",
			len(manifest.Departments), len(manifest.Systems), len(manifest.Templates))
	} else {
		if err := manifest.Apply(db); err != nil {
			return fmt.Errorf("failed to apply baseline manifest: %w", err)
		}
		log.Printf("✓ baseline manifest applied (%d departments, %d systems, %d templates)",
			len(manifest.Departments), len(manifest.Systems), len(manifest.Templates))
	}

	s := newSeeder(db, opts)

	if err := s.loadReference(); err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}

	if err := s.createUsers(opts.NumUsers); err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d staff accounts created", len(s.users))

	if err := s.assignMemberships(); err != nil {
		return fmt.Errorf("failed to assign department roles: %w", err)
	}
	log.Printf("✓ department roles assigned across %d departments", len(s.departments))

	created, err := s.createRequests(opts.NumRequests)
	if err != nil {
		return fmt.Errorf("failed to create requests: %w", err)
	}
	log.Printf("✓ %d access requests created", created)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func loadManifest(opts Options) (*Manifest, error) {
	if opts.ManifestPath != "" {
		return LoadManifest(opts.ManifestPath)
	}
	return BuiltInManifest()
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE request_approvals, access_requests, request_sequences,
		templates, department_users, departments, systems, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

type seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
	repo    repository.AccessRequestRepository

	departments []models.Department
	templates   []models.Template
	systems     []models.System
	users       []*models.User
	admin       *models.User

	// approver pool per department, filled by assignMemberships
	approvers map[uint][]*models.User
}

func newSeeder(db *gorm.DB, opts Options) *seeder {
	return &seeder{
		db:        db,
		opts:      opts,
		factory:   NewFactory(db, opts),
		repo:      repository.NewAccessRequestRepository(db),
		approvers: make(map[uint][]*models.User),
	}
}

func (s *seeder) loadReference() error {
	if err := s.db.Where("is_active = ?", true).Find(&s.departments).Error; err != nil {
		return err
	}
	if err := s.db.Where("is_active = ?", true).Find(&s.templates).Error; err != nil {
		return err
	}
	return s.db.Where("is_active = ?", true).Find(&s.systems).Error
}

func (s *seeder) createUsers(count int) error {
	// Always include a known admin and two named accounts for manual testing.
	admin, err := s.factory.CreateUser(func(u *models.User) {
		u.Username = "ict.admin"
		u.Email = "ict-admin@hospital.local"
		u.FullName = "ICT Administrator"
		u.JobTitle = "Systems Administrator"
		u.IsAdmin = true
	})
	if err != nil {
		return err
	}
	s.admin = admin
	s.users = append(s.users, admin)

	for _, fixed := range []struct{ username, fullName, jobTitle string }{
		{"charge.nurse", "Charge Nurse", "Charge Nurse"},
		{"ward.clerk", "Ward Clerk", "Ward Clerk"},
	} {
		fixed := fixed
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = fixed.username
			u.Email = fixed.username + "@hospital.local"
			u.FullName = fixed.fullName
			u.JobTitle = fixed.jobTitle
		})
		if err != nil {
			return err
		}
		s.users = append(s.users, user)
	}

	for i := len(s.users); i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		s.users = append(s.users, user)

		if i%100 == 0 && i > 0 {
			log.Printf("Created %d users...", i)
		}
	}
	return nil
}

// assignMemberships gives every department at least one approver, then
// spreads the remaining users across departments as requesters.
func (s *seeder) assignMemberships() error {
	if len(s.departments) == 0 || len(s.users) < 2 {
		return nil
	}

	r := s.factory.rand

	// Non-admin users only; the admin acts through the fulfillment queue.
	pool := s.users[1:]

	for i := range s.departments {
		dept := &s.departments[i]
		approver := pool[r.Intn(len(pool))]
		if err := s.factory.CreateMembership(approver, dept, models.DepartmentRoleBoth, s.admin); err != nil {
			return err
		}
		s.approvers[dept.ID] = append(s.approvers[dept.ID], approver)
	}

	for _, user := range pool {
		dept := &s.departments[r.Intn(len(s.departments))]
		if s.hasApprover(dept.ID, user) {
			continue
		}
		role := models.DepartmentRoleRequester
		if r.Intn(5) == 0 {
			role = models.DepartmentRoleApprover
		}
		if err := s.factory.CreateMembership(user, dept, role, s.admin); err != nil {
			// unique index violation when the user already holds a role here
			continue
		}
		if role.CanApprove() {
			s.approvers[dept.ID] = append(s.approvers[dept.ID], user)
		}
	}
	return nil
}

func (s *seeder) hasApprover(deptID uint, user *models.User) bool {
	for _, a := range s.approvers[deptID] {
		if a.ID == user.ID {
			return true
		}
	}
	return false
}

// createRequests generates the backlog and drives each request through its
// target lifecycle state with real transitions so audit rows and workflow
// timestamps are consistent.
func (s *seeder) createRequests(count int) (int, error) {
	if count == 0 || len(s.templates) == 0 || len(s.users) < 2 {
		return 0, nil
	}
	if s.opts.DryRun {
		log.Printf("[dry-run] createRequests: %d requests (no DB write)", count)
		return count, nil
	}

	ctx := context.Background()
	r := s.factory.rand
	pending, approved, rejected, fulfilled, cancelled := computeCounts(count, defaultDistribution)

	targets := make([]models.RequestStatus, 0, count)
	appendN := func(status models.RequestStatus, n int) {
		for i := 0; i < n; i++ {
			targets = append(targets, status)
		}
	}
	appendN(models.RequestStatusPending, pending)
	appendN(models.RequestStatusApproved, approved)
	appendN(models.RequestStatusRejected, rejected)
	appendN(models.RequestStatusFulfilled, fulfilled)
	appendN(models.RequestStatusCancelled, cancelled)

	created := 0
	for i, target := range targets {
		tpl := &s.templates[r.Intn(len(s.templates))]
		requester := s.users[1:][r.Intn(len(s.users)-1)]

		req := s.factory.BuildRequest(requester, tpl)
		if len(s.systems) > 0 {
			req.SystemID = s.systems[r.Intn(len(s.systems))].ID
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return created, err
		}
		created++

		if err := s.advance(ctx, req, target); err != nil {
			return created, err
		}

		if i%100 == 0 && i > 0 {
			log.Printf("Created %d requests...", i)
		}
	}
	return created, nil
}

func (s *seeder) advance(ctx context.Context, req *models.AccessRequest, target models.RequestStatus) error {
	if target == models.RequestStatusPending {
		return nil
	}

	approver := s.pickApprover(req)
	decidedAt := req.SubmittedAt.Add(time.Duration(s.factory.rand.Intn(72)+1) * time.Hour)

	switch target {
	case models.RequestStatusApproved, models.RequestStatusFulfilled:
		if err := s.apply(ctx, req, lifecycle.Approve, approver.ID,
			"Verified with the department head.", models.ApprovalActionApproved, decidedAt); err != nil {
			return err
		}
		if target == models.RequestStatusFulfilled {
			fulfilledAt := decidedAt.Add(time.Duration(s.factory.rand.Intn(48)+1) * time.Hour)
			req.Status = models.RequestStatusApproved
			return s.apply(ctx, req, lifecycle.Fulfill, s.admin.ID,
				"Account provisioned.", models.ApprovalActionFulfilled, fulfilledAt)
		}
		return nil
	case models.RequestStatusRejected:
		return s.apply(ctx, req, lifecycle.Reject, approver.ID,
			"Insufficient justification for the requested profile.", models.ApprovalActionRejected, decidedAt)
	case models.RequestStatusCancelled:
		return s.apply(ctx, req, lifecycle.Cancel, req.RequesterID,
			"Submitted in error.", models.ApprovalActionCancelled, decidedAt)
	}
	return nil
}

type transitionFunc func(r *models.AccessRequest, actorID uint, note string, now time.Time) (lifecycle.Change, error)

func (s *seeder) apply(ctx context.Context, req *models.AccessRequest, build transitionFunc,
	actorID uint, note string, action models.ApprovalAction, at time.Time) error {
	change, err := build(req, actorID, note, at)
	if err != nil {
		return err
	}
	audit := &models.RequestApproval{
		ApproverID: actorID,
		Action:     action,
		Comments:   note,
		ActionedAt: at,
	}
	return s.repo.ApplyChange(ctx, req.ID, change, audit)
}

func (s *seeder) pickApprover(req *models.AccessRequest) *models.User {
	if req.RequesterDepartmentID != nil {
		candidates := s.approvers[*req.RequesterDepartmentID]
		for _, c := range candidates {
			if c.ID != req.RequesterID {
				return c
			}
		}
	}
	return s.admin
}
