package models

import "time"

// ApprovalAction is the kind of decision recorded in the audit trail.
type ApprovalAction string

const (
	ApprovalActionApproved  ApprovalAction = "approved"
	ApprovalActionRejected  ApprovalAction = "rejected"
	ApprovalActionFulfilled ApprovalAction = "fulfilled"
	ApprovalActionCancelled ApprovalAction = "cancelled"
)

// RequestApproval is an append-only audit record of a lifecycle decision.
// One row is written per transition; rows are never updated or deleted.
type RequestApproval struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RequestID  uint           `gorm:"not null;index" json:"request_id"`
	ApproverID uint           `gorm:"not null;index" json:"approver_id"`
	Approver   *User          `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Action     ApprovalAction `gorm:"type:varchar(20);not null" json:"action"`
	Comments   string         `gorm:"type:text" json:"comments"`
	ActionedAt time.Time      `gorm:"not null" json:"actioned_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
