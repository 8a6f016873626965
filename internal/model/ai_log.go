package model

import "time"

// AICallLog AI调用日志
type AICallLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// 关联
	ProductID string `gorm:"size:64;index;comment:商品ID" json:"product_id"`

	// 调用信息
	CallType  string `gorm:"size:32;index;comment:调用类型(search/text/image/chat)" json:"call_type"`
	ModelName string `gorm:"size:64;comment:模型名称" json:"model_name"`

	// 用量统计
	InputTokens  int `gorm:"default:0;comment:输入token数" json:"input_tokens"`
	OutputTokens int `gorm:"default:0;comment:输出token数" json:"output_tokens"`
	ImageCount   int `gorm:"default:0;comment:生成图片数量" json:"image_count"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)" json:"duration_ms"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)" json:"status"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息" json:"error_msg"`
}

func (AICallLog) TableName() string {
	return "ai_call_logs"
}

// ==================== 调用类型常量 ====================

const (
	AICallTypeSearch = "search"
	AICallTypeText   = "text"
	AICallTypeImage  = "image"
	AICallTypeChat   = "chat"
)

// ==================== 状态常量 ====================

const (
	AICallStatusSuccess = "success"
	AICallStatusFailed  = "failed"
)
