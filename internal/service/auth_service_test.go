package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

func newAuthService(t *testing.T) (IAuthService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewAuthService(env.driver, "test-secret", time.Hour), env
}

func TestRegisterAndLogin(t *testing.T) {
	auth, env := newAuthService(t)

	reg, err := auth.Register(env.ctx, &dto.RegisterRequest{
		Name:     "Sam",
		Email:    "sam@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)

	res, err := auth.Login(env.ctx, &dto.LoginRequest{
		Email:    "sam@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(res.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "tenant-a", claims["namespace"])
	assert.NotEmpty(t, claims["user_id"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, env := newAuthService(t)

	_, err := auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "first", Email: "dup@example.com", Password: "longenough",
	})
	require.NoError(t, err)

	_, err = auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "second", Email: "dup@example.com", Password: "longenough",
	})
	assert.ErrorIs(t, err, storage.ErrConstraint)
}

func TestLoginWrongPassword(t *testing.T) {
	auth, env := newAuthService(t)

	_, err := auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = auth.Login(env.ctx, &dto.LoginRequest{
		Email: "sam@example.com", Password: "not-the-password",
	})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestLoginUnknownEmail(t *testing.T) {
	auth, env := newAuthService(t)

	_, err := auth.Login(env.ctx, &dto.LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
