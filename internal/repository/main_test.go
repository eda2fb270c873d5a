package repository

import (
	"testing"
	"time"

	"accessdesk/internal/database"
	"accessdesk/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@hospital.local",
		Password: "x",
		FullName: username,
		IsAdmin:  admin,
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedDepartment(t *testing.T, db *gorm.DB, code string) *models.Department {
	t.Helper()
	d := &models.Department{Code: code, Name: code + " Department", IsActive: true}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed department: %v", err)
	}
	return d
}

func seedTemplate(t *testing.T, db *gorm.DB, mnemonic string, deptID uint) *models.Template {
	t.Helper()
	tpl := &models.Template{
		Mnemonic:     mnemonic,
		Name:         mnemonic + " profile",
		DepartmentID: deptID,
		IsActive:     true,
	}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

func newRequest(requester *models.User, deptID, templateID uint, submitted time.Time) *models.AccessRequest {
	return &models.AccessRequest{
		RequesterID:           requester.ID,
		RequesterDepartmentID: &deptID,
		TemplateID:            templateID,
		SystemID:              1,
		RequestType:           models.RequestTypeNewAccess,
		FirstName:             "Amina",
		LastName:              "Mwangi",
		Email:                 "amina.mwangi@hospital.local",
		Justification:         "New hire starting on the medical ward",
		Priority:              models.PriorityNormal,
		SubmittedAt:           submitted,
	}
}
