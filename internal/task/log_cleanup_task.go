package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"obra_catalog/internal/repository"
)

// ==================== LogCleanupTask AI 调用记录清理 ====================

// LogCleanupTask 定时删除过期的 AI 调用记录
type LogCleanupTask struct {
	repo      repository.AICallLogRepository
	cron      *cron.Cron
	spec      string
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewLogCleanupTask retentionDays 为保留天数
func NewLogCleanupTask(repo repository.AICallLogRepository, spec string, retentionDays int, logger *zap.Logger) *LogCleanupTask {
	return &LogCleanupTask{
		repo:      repo,
		cron:      cron.New(cron.WithSeconds()),
		spec:      spec,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Start 启动定时任务
func (t *LogCleanupTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := t.RunNow(ctx); err != nil {
			t.logger.Warn("清理 AI 调用记录失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("调用记录清理任务已启动", zap.String("spec", t.spec), zap.Duration("retention", t.retention))
	return nil
}

// Stop 停止任务
func (t *LogCleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("调用记录清理任务已停止")
}

// RunNow 立即清理一次
func (t *LogCleanupTask) RunNow(ctx context.Context) (int64, error) {
	n, err := t.repo.DeleteBefore(ctx, t.now().Add(-t.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.logger.Info("已清理 AI 调用记录", zap.Int64("count", n))
	}
	return n, nil
}
