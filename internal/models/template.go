package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Template is a department-scoped access profile a requester can pick. It
// bundles the EHR access level and module/permission lists that fulfillment
// provisions.
type Template struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Mnemonic           string         `gorm:"size:30;not null;uniqueIndex:idx_template_mnemonic" json:"mnemonic"`
	Name               string         `gorm:"size:150;not null" json:"name"`
	DepartmentID       uint           `gorm:"not null;index;uniqueIndex:idx_template_mnemonic" json:"department_id"`
	Department         *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Category           string         `gorm:"size:50" json:"category"`
	Description        string         `gorm:"type:text" json:"description"`
	EHRAccessLevel     string         `gorm:"size:50" json:"ehr_access_level"`
	EHRModuleAccess    StringList     `gorm:"type:text" json:"ehr_module_access"`
	EHRPermissions     StringList     `gorm:"type:text" json:"ehr_permissions"`
	SystemAccess       StringList     `gorm:"type:text" json:"system_access"`
	IsActive           bool           `gorm:"default:true;index" json:"is_active"`
	RequiresCOSReview  bool           `gorm:"default:false" json:"requires_cos_review"`
	CreatedByID        *uint          `json:"created_by_id"`
	CreatedBy          *User          `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Version            int            `gorm:"default:1" json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName is the mnemonic-prefixed label shown in pickers.
func (t Template) DisplayName() string {
	return fmt.Sprintf("%s - %s", t.Mnemonic, t.Name)
}
