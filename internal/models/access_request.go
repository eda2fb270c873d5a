package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// RequestStatus defines lifecycle states for access requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting departmental review.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved indicates the request was approved and awaits fulfillment.
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected indicates the request was rejected by an approver.
	RequestStatusRejected RequestStatus = "rejected"
	// RequestStatusFulfilled indicates access was provisioned by an ICT admin.
	RequestStatusFulfilled RequestStatus = "fulfilled"
	// RequestStatusCancelled indicates the request was withdrawn before fulfillment.
	RequestStatusCancelled RequestStatus = "cancelled"
)

// RequestType classifies what kind of access change is requested.
type RequestType string

const (
	RequestTypeNewAccess        RequestType = "new_access"
	RequestTypeAdditionalRights RequestType = "additional_rights"
	RequestTypeReactivation     RequestType = "reactivation"
	RequestTypeTermination      RequestType = "termination"
)

// RequestPriority ranks how urgently a request should be processed.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// OrderScope is the signing/co-signing scope for clinician templates.
type OrderScope string

const (
	OrderScopeOrders  OrderScope = "orders"
	OrderScopeReports OrderScope = "reports"
	OrderScopeBoth    OrderScope = "both"
	OrderScopeNeither OrderScope = "neither"
)

// AccessRequest is a staff request for system access on behalf of a target
// user. It is created in pending status and mutated only through the four
// lifecycle transitions (approve, reject, fulfill, cancel).
type AccessRequest struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	RequestNumber string `gorm:"size:50;uniqueIndex;not null" json:"request_number"`

	// Requester context
	RequesterID           uint        `gorm:"not null;index" json:"requester_id"`
	Requester             *User       `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	RequesterDepartmentID *uint       `gorm:"index" json:"requester_department_id"`
	RequesterDepartment   *Department `gorm:"foreignKey:RequesterDepartmentID" json:"requester_department,omitempty"`

	// Template, target department and system
	TemplateID   uint        `gorm:"not null;index" json:"template_id"`
	Template     *Template   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	DepartmentID *uint       `gorm:"index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	SystemID     uint        `gorm:"not null;default:1" json:"system_id"`
	System       *System     `gorm:"foreignKey:SystemID" json:"system,omitempty"`

	RequestType RequestType   `gorm:"type:varchar(30);not null" json:"request_type"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_status;index:idx_status_department" json:"status"`

	// Target user details
	PayrollNumber string `gorm:"size:50" json:"payroll_number"`
	FirstName     string `gorm:"size:100;not null" json:"first_name"`
	LastName      string `gorm:"size:100;not null" json:"last_name"`
	Email         string `gorm:"not null" json:"email"`
	Username      string `gorm:"size:100" json:"username"`
	JobTitle      string `gorm:"size:150" json:"job_title"`

	// Clinician (chief-of-service) fields
	ProviderGroup     string      `gorm:"size:100" json:"provider_group,omitempty"`
	ProviderType      string      `gorm:"size:100" json:"provider_type,omitempty"`
	Specialty         string      `gorm:"size:100" json:"specialty,omitempty"`
	Service           string      `gorm:"size:100" json:"service,omitempty"`
	Admitting         *bool       `json:"admitting,omitempty"`
	OrderingPhysician *bool       `json:"ordering_physician,omitempty"`
	SignOrders        *OrderScope `gorm:"type:varchar(10)" json:"sign_orders,omitempty"`
	CosignOrders      *OrderScope `gorm:"type:varchar(10)" json:"cosign_orders,omitempty"`

	Justification string          `gorm:"type:text;not null" json:"justification"`
	Priority      RequestPriority `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`

	// Workflow fields; each trio is written exactly once by its transition.
	SubmittedAt time.Time `gorm:"index" json:"submitted_at"`

	ApprovedAt       *time.Time `json:"approved_at"`
	ApprovedByID     *uint      `json:"approved_by_id"`
	ApprovedBy       *User      `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ApprovalComments string     `gorm:"type:text" json:"approval_comments"`

	RejectedAt      *time.Time `json:"rejected_at"`
	RejectedByID    *uint      `json:"rejected_by_id"`
	RejectedBy      *User      `gorm:"foreignKey:RejectedByID" json:"rejected_by,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	FulfilledAt      *time.Time `json:"fulfilled_at"`
	FulfilledByID    *uint      `json:"fulfilled_by_id"`
	FulfilledBy      *User      `gorm:"foreignKey:FulfilledByID" json:"fulfilled_by,omitempty"`
	FulfillmentNotes string     `gorm:"type:text" json:"fulfillment_notes"`

	CancelledAt        *time.Time `json:"cancelled_at"`
	CancelledByID      *uint      `json:"cancelled_by_id"`
	CancelledBy        *User      `gorm:"foreignKey:CancelledByID" json:"cancelled_by,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason"`

	Approvals []RequestApproval `gorm:"foreignKey:RequestID" json:"approvals,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPending reports whether the request awaits departmental review.
func (r *AccessRequest) IsPending() bool { return r.Status == RequestStatusPending }

// IsApproved reports whether the request awaits fulfillment.
func (r *AccessRequest) IsApproved() bool { return r.Status == RequestStatusApproved }

// IsFulfilled reports whether access has been provisioned.
func (r *AccessRequest) IsFulfilled() bool { return r.Status == RequestStatusFulfilled }

// FullName is the target user's display name.
func (r *AccessRequest) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ProcessingTimeDays is the whole number of days between submission and
// fulfillment, or nil if the request has not been fulfilled.
func (r *AccessRequest) ProcessingTimeDays() *int {
	if r.FulfilledAt == nil {
		return nil
	}
	days := int(r.FulfilledAt.Sub(r.SubmittedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

// ValidRequestStatus reports whether s is one of the known lifecycle states.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusFulfilled, RequestStatusCancelled:
		return true
	}
	return false
}

// ValidRequestType reports whether t is one of the known request types.
func ValidRequestType(t RequestType) bool {
	switch t {
	case RequestTypeNewAccess, RequestTypeAdditionalRights, RequestTypeReactivation, RequestTypeTermination:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p RequestPriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ValidOrderScope reports whether s is one of the known order scopes.
func ValidOrderScope(s OrderScope) bool {
	switch s {
	case OrderScopeOrders, OrderScopeReports, OrderScopeBoth, OrderScopeNeither:
		return true
	}
	return false
}
