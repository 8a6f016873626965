package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"obra_catalog/internal/model"
)

// ==================== 仓储接口 ====================

// AICallLogRepository AI调用日志仓储接口
type AICallLogRepository interface {
	Create(ctx context.Context, log *model.AICallLog) error
	GetByID(ctx context.Context, id int64) (*model.AICallLog, error)
	ListRecent(ctx context.Context, callType string, limit int) ([]model.AICallLog, error)

	// 统计查询
	GetUsage(ctx context.Context, startTime, endTime time.Time) (*AIUsageStats, error)
	CountByStatus(ctx context.Context, callType string) (map[string]int64, error)

	// 清理
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 统计结构 ====================

// AIUsageStats AI用量统计
type AIUsageStats struct {
	TotalCalls        int64   `json:"total_calls"`
	SearchCalls       int64   `json:"search_calls"`
	TextCalls         int64   `json:"text_calls"`
	ImageCalls        int64   `json:"image_calls"`
	ChatCalls         int64   `json:"chat_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalImages       int64   `json:"total_images"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	SuccessCount      int64   `json:"success_count"`
	FailedCount       int64   `json:"failed_count"`
}

// ==================== 仓储实现 ====================

type aiCallLogRepo struct {
	db *gorm.DB
}

// NewAICallLogRepository 创建AI调用日志仓储
func NewAICallLogRepository(db *gorm.DB) AICallLogRepository {
	return &aiCallLogRepo{db: db}
}

func (r *aiCallLogRepo) Create(ctx context.Context, log *model.AICallLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *aiCallLogRepo) GetByID(ctx context.Context, id int64) (*model.AICallLog, error) {
	var log model.AICallLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// ListRecent 最近的调用记录，callType 为空时不过滤
func (r *aiCallLogRepo) ListRecent(ctx context.Context, callType string, limit int) ([]model.AICallLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if callType != "" {
		query = query.Where("call_type = ?", callType)
	}

	var logs []model.AICallLog
	err := query.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *aiCallLogRepo) GetUsage(ctx context.Context, startTime, endTime time.Time) (*AIUsageStats, error) {
	var stats AIUsageStats

	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(`
		COUNT(*) as total_calls,
		COALESCE(SUM(CASE WHEN call_type = 'search' THEN 1 ELSE 0 END), 0) as search_calls,
		COALESCE(SUM(CASE WHEN call_type = 'text' THEN 1 ELSE 0 END), 0) as text_calls,
		COALESCE(SUM(CASE WHEN call_type = 'image' THEN 1 ELSE 0 END), 0) as image_calls,
		COALESCE(SUM(CASE WHEN call_type = 'chat' THEN 1 ELSE 0 END), 0) as chat_calls,
		COALESCE(SUM(input_tokens), 0) as total_input_tokens,
		COALESCE(SUM(output_tokens), 0) as total_output_tokens,
		COALESCE(SUM(image_count), 0) as total_images,
		COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
		COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count
	`).Scan(&stats).Error

	return &stats, err
}

// CountByStatus 按状态计数
func (r *aiCallLogRepo) CountByStatus(ctx context.Context, callType string) (map[string]int64, error) {
	type result struct {
		Status string
		Count  int64
	}
	var results []result

	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if callType != "" {
		query = query.Where("call_type = ?", callType)
	}
	err := query.Select("status, COUNT(*) as count").Group("status").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}

// DeleteBefore 删除早于指定时间的记录，返回删除条数
func (r *aiCallLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.AICallLog{})
	return result.RowsAffected, result.Error
}
