package services

import (
	"testing"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(repositories.NewUserRepository())

	hash, err := bcrypt.GenerateFromPassword([]byte("super_password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        "worker@test.com",
		PasswordHash: string(hash),
		Role:         models.UserRoleWorker,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)

	resp, err := svc.Login(db, &dto.LoginRequest{Email: "worker@test.com", Password: "super_password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, "worker", resp.Role)
}

func TestLogin_BadPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(repositories.NewUserRepository())

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email:        "user@test.com",
		PasswordHash: string(hash),
		Role:         models.UserRoleWorker,
		Status:       models.UserStatusActive,
	}).Error)

	_, err = svc.Login(db, &dto.LoginRequest{Email: "user@test.com", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(repositories.NewUserRepository())

	_, err := svc.Login(db, &dto.LoginRequest{Email: "ghost@test.com", Password: "whatever"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
