package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/middleware"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/pkg/errs"
)

// ==================== AuthService 后台登录 ====================

// AuthService 账号密码登录，签发 JWT
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *middleware.TokenManager
	logger   *zap.Logger
}

// NewAuthService 创建登录服务
func NewAuthService(userRepo repository.UserRepository, tokens *middleware.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, logger: logger}
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*dto.LoginResp, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: 用户名或密码错误", errs.ErrUnauthorized)
	}
	if user.Status != model.UserStatusActive {
		return nil, errs.ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: 用户名或密码错误", errs.ErrUnauthorized)
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("更新登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	s.logger.Info("用户登录", zap.String("username", user.Username))
	return resp, nil
}

// Refresh 用 Refresh Token 换新的 Token 对，账号被禁用后不能再刷新
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResp, error) {
	claims, err := s.tokens.ParseToken(refreshToken)
	if err != nil || !claims.IsRefresh() {
		return nil, fmt.Errorf("%w: Refresh Token 无效", errs.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: 用户不存在", errs.ErrUnauthorized)
	}
	if user.Status != model.UserStatusActive {
		return nil, errs.ErrUserDisabled
	}
	return s.issue(user)
}

// EnsureAdmin 用户表为空时创建初始管理员
// 没有配置密码时随机生成并打印到日志
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if username == "" {
		username = "admin"
	}
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Create(ctx, &model.SysUser{
		Username: username,
		Password: hash,
		Role:     model.UserRoleAdmin,
		Status:   model.UserStatusActive,
	}); err != nil {
		return false, err
	}

	if generated {
		s.logger.Warn("已创建初始管理员，请尽快修改密码", zap.String("username", username), zap.String("password", password))
	} else {
		s.logger.Info("已创建初始管理员", zap.String("username", username))
	}
	return true, nil
}

func (s *AuthService) issue(user *model.SysUser) (*dto.LoginResp, error) {
	access, refresh, err := s.tokens.GenerateTokenPair(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("签发 Token 失败: %w", err)
	}
	return &dto.LoginResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenTTL()),
		User: dto.UserInfo{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
	}, nil
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
