package dto

import "time"

// LoginReq 后台登录
type LoginReq struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenReq 刷新 Token
type RefreshTokenReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LoginResp 登录/刷新结果
type LoginResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserInfo  `json:"user"`
}

// UserInfo 当前用户
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
