// Package service implements the application's business logic.
package service

import (
	"context"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
)

// Authorizer decides which lifecycle actions a user may perform. Status
// checks stay in the lifecycle package; everything identity-based lives
// here.
type Authorizer struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
}

// NewAuthorizer returns a new Authorizer.
func NewAuthorizer(users repository.UserRepository, departments repository.DepartmentRepository) *Authorizer {
	return &Authorizer{users: users, departments: departments}
}

// IsAdmin reports whether the user is an ICT admin.
func (a *Authorizer) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin && user.IsActive, nil
}

// CanRequestFor reports whether the user may submit requests on behalf of
// the given department. Admins may always.
func (a *Authorizer) CanRequestFor(ctx context.Context, userID, departmentID uint) (bool, error) {
	if admin, err := a.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}
	membership, err := a.departments.GetMembership(ctx, userID, departmentID)
	if err != nil {
		return false, err
	}
	if membership == nil || !membership.IsActive {
		return false, nil
	}
	return membership.Role.CanRequest(), nil
}

// CanApproveFor reports whether the user may approve or reject requests
// whose requester belongs to the given department. Admins may always.
func (a *Authorizer) CanApproveFor(ctx context.Context, userID uint, departmentID *uint) (bool, error) {
	if admin, err := a.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}
	if departmentID == nil {
		return false, nil
	}
	membership, err := a.departments.GetMembership(ctx, userID, *departmentID)
	if err != nil {
		return false, err
	}
	if membership == nil || !membership.IsActive {
		return false, nil
	}
	return membership.Role.CanApprove(), nil
}

// CanView reports whether the user may see the given request: its
// requester, an approver for the requester's department, or an admin.
func (a *Authorizer) CanView(ctx context.Context, userID uint, req *models.AccessRequest) (bool, error) {
	if req.RequesterID == userID {
		return true, nil
	}
	return a.CanApproveFor(ctx, userID, req.RequesterDepartmentID)
}
