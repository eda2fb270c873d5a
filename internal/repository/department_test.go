package repository

import (
	"context"
	"testing"

	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentMemberships(t *testing.T) {
	db := newTestDB(t)
	repo := NewDepartmentRepository(db)
	ctx := context.Background()

	med := seedDepartment(t, db, "MED")
	sur := seedDepartment(t, db, "SUR")
	user := seedUser(t, db, "charge.nurse", false)

	require.NoError(t, repo.AssignUser(ctx, &models.DepartmentUser{
		UserID:       user.ID,
		DepartmentID: med.ID,
		Role:         models.DepartmentRoleApprover,
		IsActive:     true,
	}))
	require.NoError(t, repo.AssignUser(ctx, &models.DepartmentUser{
		UserID:       user.ID,
		DepartmentID: sur.ID,
		Role:         models.DepartmentRoleRequester,
		IsActive:     true,
	}))

	// Duplicate assignment is rejected.
	err := repo.AssignUser(ctx, &models.DepartmentUser{
		UserID:       user.ID,
		DepartmentID: med.ID,
		Role:         models.DepartmentRoleBoth,
	})
	assert.Error(t, err)

	memberships, err := repo.ListMembershipsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, memberships, 2)

	ids, err := repo.ApproverDepartmentIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{med.ID}, ids)

	membership, err := repo.GetMembership(ctx, user.ID, sur.ID)
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.True(t, membership.Role.CanRequest())
	assert.False(t, membership.Role.CanApprove())

	require.NoError(t, repo.RemoveUser(ctx, user.ID, sur.ID))
	gone, err := repo.GetMembership(ctx, user.ID, sur.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDepartmentList(t *testing.T) {
	db := newTestDB(t)
	repo := NewDepartmentRepository(db)
	ctx := context.Background()

	seedDepartment(t, db, "MED")
	inactive := seedDepartment(t, db, "OLD")
	inactive.IsActive = false
	require.NoError(t, repo.Update(ctx, inactive))

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "MED", active[0].Code)
}
