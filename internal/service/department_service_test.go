package service

import (
	"context"
	"testing"

	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDepartmentService(departments *departmentRepoStub) *DepartmentService {
	users := testUsers()
	authz := NewAuthorizer(users, departments)
	return NewDepartmentService(departments, users, authz)
}

func TestCreateDepartment(t *testing.T) {
	ctx := context.Background()

	t.Run("uppercases the code and creates", func(t *testing.T) {
		svc := newTestDepartmentService(departmentRepoWith())

		dept, err := svc.CreateDepartment(ctx, DepartmentInput{
			ActorID: adminID,
			Code:    "icu",
			Name:    "Intensive Care Unit",
		})
		require.NoError(t, err)
		assert.Equal(t, "ICU", dept.Code)
		assert.True(t, dept.IsActive)
	})

	t.Run("admin only", func(t *testing.T) {
		svc := newTestDepartmentService(departmentRepoWith())

		_, err := svc.CreateDepartment(ctx, DepartmentInput{ActorID: strangerID, Code: "ICU", Name: "ICU"})
		assertAppError(t, err, "UNAUTHORIZED")
	})

	t.Run("code must be unique", func(t *testing.T) {
		departments := departmentRepoWith()
		departments.getByCodeFn = func(_ context.Context, code string) (*models.Department, error) {
			return &models.Department{ID: 2, Code: code}, nil
		}
		svc := newTestDepartmentService(departments)

		_, err := svc.CreateDepartment(ctx, DepartmentInput{ActorID: adminID, Code: "ICU", Name: "ICU"})
		assertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("rejects blank fields", func(t *testing.T) {
		svc := newTestDepartmentService(departmentRepoWith())

		_, err := svc.CreateDepartment(ctx, DepartmentInput{ActorID: adminID, Code: "", Name: "ICU"})
		assertAppError(t, err, "VALIDATION_ERROR")

		_, err = svc.CreateDepartment(ctx, DepartmentInput{ActorID: adminID, Code: "ICU", Name: "  "})
		assertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns and records who assigned", func(t *testing.T) {
		departments := departmentRepoWith()
		var assigned *models.DepartmentUser
		departments.assignUserFn = func(_ context.Context, m *models.DepartmentUser) error {
			m.ID = 1
			assigned = m
			return nil
		}
		svc := newTestDepartmentService(departments)

		m, err := svc.AssignRole(ctx, AssignRoleInput{
			ActorID:      adminID,
			DepartmentID: deptID,
			UserID:       strangerID,
			Role:         models.DepartmentRoleBoth,
		})
		require.NoError(t, err)
		assert.Equal(t, models.DepartmentRoleBoth, m.Role)
		assert.True(t, m.IsActive)
		require.NotNil(t, assigned.AssignedByID)
		assert.Equal(t, adminID, *assigned.AssignedByID)
		assert.False(t, assigned.AssignedAt.IsZero())
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc := newTestDepartmentService(departmentRepoWith())

		_, err := svc.AssignRole(ctx, AssignRoleInput{
			ActorID:      adminID,
			DepartmentID: deptID,
			UserID:       strangerID,
			Role:         "supervisor",
		})
		assertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("admin only", func(t *testing.T) {
		svc := newTestDepartmentService(testDepartments())

		_, err := svc.AssignRole(ctx, AssignRoleInput{
			ActorID:      approverID,
			DepartmentID: deptID,
			UserID:       strangerID,
			Role:         models.DepartmentRoleRequester,
		})
		assertAppError(t, err, "UNAUTHORIZED")
	})
}

func TestRemoveRole(t *testing.T) {
	ctx := context.Background()

	t.Run("removes via the repository", func(t *testing.T) {
		departments := departmentRepoWith()
		var removedUser, removedDept uint
		departments.removeUserFn = func(_ context.Context, userID, departmentID uint) error {
			removedUser, removedDept = userID, departmentID
			return nil
		}
		svc := newTestDepartmentService(departments)

		require.NoError(t, svc.RemoveRole(ctx, adminID, deptID, strangerID))
		assert.Equal(t, strangerID, removedUser)
		assert.Equal(t, deptID, removedDept)
	})

	t.Run("admin only", func(t *testing.T) {
		svc := newTestDepartmentService(departmentRepoWith())
		assertAppError(t, svc.RemoveRole(ctx, strangerID, deptID, requesterID), "UNAUTHORIZED")
	})
}

func TestMyMemberships(t *testing.T) {
	svc := newTestDepartmentService(testDepartments())

	memberships, err := svc.MyMemberships(context.Background(), approverID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, models.DepartmentRoleApprover, memberships[0].Role)
}
