package repository

import (
	"context"
	"errors"
	"testing"

	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryCRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		Username: "amina.mwangi",
		Email:    "amina.mwangi@hospital.local",
		Password: "hashed",
		FullName: "Amina Mwangi",
		JobTitle: "Charge Nurse",
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "amina.mwangi", got.Username)

	byEmail, err := repo.GetByEmail(ctx, "amina.mwangi@hospital.local")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@hospital.local")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.JobTitle = "Nurse Manager"
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nurse Manager", updated.JobTitle)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.GetByID(ctx, user.ID)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestUserRepositoryDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := &models.User{Username: "dup", Email: "dup@hospital.local", Password: "x"}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.User{Username: "dup", Email: "other@hospital.local", Password: "x"}
	err := repo.Create(ctx, second)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidationError, appErr.Code)
}
