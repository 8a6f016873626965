package task

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CartEvictor 清理空闲报价单
type CartEvictor interface {
	EvictIdle() int
}

// JobEvictor 清理已结束的批量任务
type JobEvictor interface {
	EvictFinished(before time.Time) int
}

// ==================== SessionCleanupTask 内存会话清理 ====================

// SessionCleanupTask 定时回收内存里的报价单和批量任务状态
type SessionCleanupTask struct {
	carts       CartEvictor
	jobs        JobEvictor
	jobRetained time.Duration
	cron        *cron.Cron
	spec        string
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionCleanupTask carts/jobs 可以为 nil
func NewSessionCleanupTask(carts CartEvictor, jobs JobEvictor, jobRetained time.Duration, spec string, logger *zap.Logger) *SessionCleanupTask {
	if jobRetained <= 0 {
		jobRetained = time.Hour
	}
	return &SessionCleanupTask{
		carts:       carts,
		jobs:        jobs,
		jobRetained: jobRetained,
		cron:        cron.New(cron.WithSeconds()),
		spec:        spec,
		logger:      logger,
		now:         time.Now,
	}
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() { t.RunNow() }); err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("会话清理任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务
func (t *SessionCleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("会话清理任务已停止")
}

// RunNow 立即清理一次，返回清理的报价单数和任务数
func (t *SessionCleanupTask) RunNow() (carts, jobs int) {
	if t.carts != nil {
		carts = t.carts.EvictIdle()
	}
	if t.jobs != nil {
		jobs = t.jobs.EvictFinished(t.now().Add(-t.jobRetained))
	}
	if carts > 0 || jobs > 0 {
		t.logger.Info("已清理内存会话", zap.Int("carts", carts), zap.Int("jobs", jobs))
	}
	return carts, jobs
}
