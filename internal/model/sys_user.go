package model

import "time"

// SysUser 后台账号，写接口 (保存商品、换图、批量生图) 需要登录
type SysUser struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt 哈希

	// admin: 全部写权限；editor: 只能改商品
	Role   string `gorm:"size:20;default:editor" json:"role"`
	Status int    `gorm:"not null;comment:1启用 0禁用" json:"status"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (SysUser) TableName() string {
	return "sys_users"
}

const (
	UserRoleAdmin  = "admin"
	UserRoleEditor = "editor"

	UserStatusDisabled = 0
	UserStatusActive   = 1
)
