// Package seed provides helpers to create demo and test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"accessdesk/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rand *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for demo data
	return &Factory{
		db:     db,
		opts:   opts,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

// CreateUser constructs and persists a sample staff account. Optional
// override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, gofakeit.Number(10, 99)))

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@hospital.local", username),
		FullName: fmt.Sprintf("%s %s", first, last),
		JobTitle: gofakeit.JobTitle(),
		IsActive: true,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s (%s)", user.Username, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateMembership assigns a user a role within a department.
func (f *Factory) CreateMembership(user *models.User, dept *models.Department, role models.DepartmentRole, assignedBy *models.User) error {
	membership := &models.DepartmentUser{
		UserID:       user.ID,
		DepartmentID: dept.ID,
		Role:         role,
		IsActive:     true,
		AssignedAt:   time.Now(),
	}
	if assignedBy != nil {
		membership.AssignedByID = &assignedBy.ID
	}

	if f.opts.DryRun {
		log.Printf("[dry-run] CreateMembership: user=%d dept=%s role=%s", user.ID, dept.Code, role)
		return nil
	}
	return f.db.Create(membership).Error
}

// BuildRequest constructs an access request for the given requester and
// template without persisting it. The submission time is spread over the
// past MaxDays for a realistic-looking backlog.
func (f *Factory) BuildRequest(requester *models.User, tpl *models.Template, overrides ...func(*models.AccessRequest)) *models.AccessRequest {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	targetUsername := strings.ToLower(fmt.Sprintf("%s.%s", first, last))

	req := &models.AccessRequest{
		RequesterID:           requester.ID,
		RequesterDepartmentID: &tpl.DepartmentID,
		TemplateID:            tpl.ID,
		DepartmentID:          &tpl.DepartmentID,
		RequestType:           f.randomRequestType(),
		PayrollNumber:         fmt.Sprintf("P-%05d", gofakeit.Number(10000, 99999)),
		FirstName:             first,
		LastName:              last,
		Email:                 fmt.Sprintf("%s@hospital.local", targetUsername),
		Username:              targetUsername,
		JobTitle:              gofakeit.JobTitle(),
		Justification:         gofakeit.Sentence(12),
		Priority:              f.randomPriority(),
		SubmittedAt:           f.spreadTimestamp(),
	}

	for _, override := range overrides {
		override(req)
	}
	return req
}

func (f *Factory) spreadTimestamp() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rand.Intn(maxDays)
	hoursBack := f.rand.Intn(24)
	minsBack := f.rand.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}

func (f *Factory) randomRequestType() models.RequestType {
	// Skew towards new access, the common case on a real service desk.
	switch f.rand.Intn(10) {
	case 0:
		return models.RequestTypeTermination
	case 1:
		return models.RequestTypeReactivation
	case 2, 3:
		return models.RequestTypeAdditionalRights
	default:
		return models.RequestTypeNewAccess
	}
}

func (f *Factory) randomPriority() models.RequestPriority {
	switch f.rand.Intn(10) {
	case 0:
		return models.PriorityUrgent
	case 1, 2:
		return models.PriorityHigh
	case 3:
		return models.PriorityLow
	default:
		return models.PriorityNormal
	}
}
