package task

import (
	"context"

	"go.uber.org/zap"

	"obra_catalog/internal/repository"
	"obra_catalog/pkg/config"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	backfillTask *ImageBackfillTask
	cleanupTask  *LogCleanupTask
	sessionTask  *SessionCleanupTask
	logger       *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Finder      MissingImageFinder
	Batch       BatchStarter
	CallLogRepo repository.AICallLogRepository
	Carts       CartEvictor
	Jobs        JobEvictor
}

// NewTaskManager 按配置创建任务，未启用或缺少依赖的任务不创建
func NewTaskManager(deps TaskManagerDeps, cfg config.TaskConfig, logger *zap.Logger) *TaskManager {
	tm := &TaskManager{logger: logger}

	if cfg.BackfillEnabled && deps.Finder != nil && deps.Batch != nil {
		tm.backfillTask = NewImageBackfillTask(deps.Finder, deps.Batch, cfg.BackfillCron, cfg.BackfillMaxPerRun, logger)
	}
	if cfg.LogRetentionDays > 0 && deps.CallLogRepo != nil {
		tm.cleanupTask = NewLogCleanupTask(deps.CallLogRepo, cfg.LogCleanupCron, cfg.LogRetentionDays, logger)
	}
	if cfg.SessionCleanupCron != "" && (deps.Carts != nil || deps.Jobs != nil) {
		tm.sessionTask = NewSessionCleanupTask(deps.Carts, deps.Jobs, cfg.BatchJobRetained, cfg.SessionCleanupCron, logger)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务，cron 表达式错误时返回
func (tm *TaskManager) Start() error {
	if tm.backfillTask != nil {
		if err := tm.backfillTask.Start(); err != nil {
			return err
		}
	}
	if tm.cleanupTask != nil {
		if err := tm.cleanupTask.Start(); err != nil {
			return err
		}
	}
	if tm.sessionTask != nil {
		if err := tm.sessionTask.Start(); err != nil {
			return err
		}
	}
	tm.logger.Info("定时任务已启动", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.backfillTask != nil {
		tm.backfillTask.Stop()
	}
	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	if tm.sessionTask != nil {
		tm.sessionTask.Stop()
	}
}

// ==================== 手动触发 ====================

// TriggerBackfill 立即补图
func (tm *TaskManager) TriggerBackfill(ctx context.Context) (string, int, error) {
	if tm.backfillTask == nil {
		return "", 0, ErrTaskDisabled
	}
	return tm.backfillTask.RunNow(ctx)
}

// Status 各任务是否启用
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"image_backfill":  tm.backfillTask != nil,
		"log_cleanup":     tm.cleanupTask != nil,
		"session_cleanup": tm.sessionTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
