package service

import (
	"testing"
	"time"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	env.Cfg.JWT.Secret = "test-secret"
	env.Cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(repository.NewUserRepository(env.DB), env.Cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user := &model.User{Name: "Reader", Email: "reader@example.com", Password: "secret123"}
	require.NoError(t, auth.Register(user))
	assert.Equal(t, model.Reader, user.Role)
	assert.NotEqual(t, "secret123", user.Password)

	token, logged, err := auth.Login("reader@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := util.ParseJWT(token, env.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	require.NoError(t, auth.Register(&model.User{Name: "A", Email: "dup@example.com", Password: "secret123"}))
	err := auth.Register(&model.User{Name: "B", Email: "dup@example.com", Password: "secret456"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginRejectsBadPasswordAndDisabled(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(env)

	user := &model.User{Name: "Reader", Email: "reader@example.com", Password: "secret123"}
	require.NoError(t, auth.Register(user))

	_, _, err := auth.Login("reader@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, _, err = auth.Login("ghost@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	require.NoError(t, env.DB.Model(user).Update("disabled", true).Error)
	_, _, err = auth.Login("reader@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}
