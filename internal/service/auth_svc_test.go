package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obra_catalog/internal/middleware"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/pkg/errs"
)

func newTestAuthService(t *testing.T) (*AuthService, repository.UserRepository, *middleware.TokenManager) {
	db := setupServiceTestDB(t)
	repo := repository.NewUserRepository(db)
	tokens := middleware.NewTokenManager(middleware.JWTConfig{SecretKey: "test-secret", Issuer: "obra-catalog"})
	return NewAuthService(repo, tokens, zap.NewNop()), repo, tokens
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)

	user, err := repo.GetByUsername(ctx, "root")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, model.UserRoleAdmin, user.Role)
	assert.NotEqual(t, "s3cret", user.Password, "只保存哈希")

	// 已有用户时不再创建
	created, err = svc.EnsureAdmin(ctx, "other", "x")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuthService_Login(t *testing.T) {
	svc, repo, tokens := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.EnsureAdmin(ctx, "admin", "s3cret")
	require.NoError(t, err)

	resp, err := svc.Login(ctx, " admin ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.User.Username)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := tokens.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.False(t, claims.IsRefresh())

	user, _ := repo.GetByUsername(ctx, "admin")
	assert.NotNil(t, user.LastLoginAt)

	_, err = svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &model.SysUser{Username: "off", Password: hash, Status: model.UserStatusDisabled}))
	_, err = svc.Login(ctx, "off", "pw")
	assert.ErrorIs(t, err, errs.ErrUserDisabled)
}

func TestAuthService_Refresh(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.EnsureAdmin(ctx, "admin", "s3cret")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "admin", "s3cret")
	require.NoError(t, err)

	resp, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := tokens.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	// Access Token 不能用来刷新
	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
