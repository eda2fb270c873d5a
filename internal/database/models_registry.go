package database

import "accessdesk/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Department{},
		&models.DepartmentUser{},
		&models.System{},
		&models.Template{},
		&models.AccessRequest{},
		&models.RequestApproval{},
		&models.RequestSequence{},
	}
}
