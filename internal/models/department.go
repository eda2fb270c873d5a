package models

import (
	"time"

	"gorm.io/gorm"
)

// Department is an organizational unit that owns templates and scopes
// approver/requester roles.
type Department struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"size:20;unique;not null" json:"code"`
	Name        string         `gorm:"size:150;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	HeadUserID  *uint          `json:"head_user_id"`
	Head        *User          `gorm:"foreignKey:HeadUserID" json:"head,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// DepartmentRole is the role a user holds within a department.
type DepartmentRole string

const (
	// DepartmentRoleRequester may submit access requests for the department.
	DepartmentRoleRequester DepartmentRole = "requester"
	// DepartmentRoleApprover may approve or reject the department's pending requests.
	DepartmentRoleApprover DepartmentRole = "approver"
	// DepartmentRoleBoth holds both capabilities.
	DepartmentRoleBoth DepartmentRole = "both"
)

// CanRequest reports whether the role carries the requester capability.
func (r DepartmentRole) CanRequest() bool {
	return r == DepartmentRoleRequester || r == DepartmentRoleBoth
}

// CanApprove reports whether the role carries the approver capability.
func (r DepartmentRole) CanApprove() bool {
	return r == DepartmentRoleApprover || r == DepartmentRoleBoth
}

// DepartmentUser assigns a user a role within a department.
type DepartmentUser struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index;uniqueIndex:idx_department_user" json:"user_id"`
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DepartmentID uint           `gorm:"not null;index;uniqueIndex:idx_department_user" json:"department_id"`
	Department   *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Role         DepartmentRole `gorm:"type:varchar(20);not null" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	AssignedByID *uint          `json:"assigned_by_id"`
	AssignedBy   *User          `gorm:"foreignKey:AssignedByID" json:"assigned_by,omitempty"`
	AssignedAt   time.Time      `json:"assigned_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
