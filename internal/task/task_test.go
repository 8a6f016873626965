package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/pkg/config"
	"obra_catalog/pkg/errs"
)

// ==================== 测试替身 ====================

type stubFinder struct {
	ids []string
	err error
}

func (f *stubFinder) MissingImageIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

type stubBatch struct {
	started [][]string
	err     error
}

func (b *stubBatch) Start(ctx context.Context, ids []string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.started = append(b.started, ids)
	return "job-1", nil
}

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.AICallLog{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// ==================== ImageBackfillTask ====================

func TestImageBackfillTask_RunNow(t *testing.T) {
	batch := &stubBatch{}
	task := NewImageBackfillTask(&stubFinder{ids: []string{"A", "B", "C"}}, batch, "0 0 3 * * *", 2, zap.NewNop())

	jobID, n, err := task.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]string{{"A", "B"}}, batch.started, "单次不超过上限")
}

func TestImageBackfillTask_Skips(t *testing.T) {
	tests := []struct {
		name   string
		finder *stubFinder
		batch  *stubBatch
	}{
		{"没有缺图", &stubFinder{}, &stubBatch{}},
		{"已有任务", &stubFinder{ids: []string{"A"}}, &stubBatch{err: errs.ErrBatchBusy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewImageBackfillTask(tt.finder, tt.batch, "@every 1h", 0, zap.NewNop())
			jobID, n, err := task.RunNow(context.Background())
			require.NoError(t, err)
			assert.Empty(t, jobID)
			assert.Zero(t, n)
		})
	}
}

func TestImageBackfillTask_Errors(t *testing.T) {
	task := NewImageBackfillTask(&stubFinder{err: errors.New("db down")}, &stubBatch{}, "@every 1h", 0, zap.NewNop())
	_, _, err := task.RunNow(context.Background())
	assert.Error(t, err)

	bad := NewImageBackfillTask(&stubFinder{}, &stubBatch{}, "not a cron", 0, zap.NewNop())
	assert.Error(t, bad.Start())
}

func TestImageBackfillTask_StartStop(t *testing.T) {
	task := NewImageBackfillTask(&stubFinder{}, &stubBatch{}, "0 0 3 * * *", 0, zap.NewNop())
	require.NoError(t, task.Start())

	done := make(chan struct{})
	go func() {
		task.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop 超时")
	}
}

// ==================== LogCleanupTask ====================

func TestLogCleanupTask_RunNow(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := repository.NewAICallLogRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.AICallLog{CreatedAt: time.Now().AddDate(0, 0, -10), CallType: model.AICallTypeText})
	repo.Create(ctx, &model.AICallLog{CallType: model.AICallTypeChat})

	task := NewLogCleanupTask(repo, "@daily", 7, zap.NewNop())
	n, err := task.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = task.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ==================== SessionCleanupTask ====================

type stubEvictor struct {
	carts  int
	jobs   int
	before time.Time
}

func (s *stubEvictor) EvictIdle() int { return s.carts }

func (s *stubEvictor) EvictFinished(before time.Time) int {
	s.before = before
	return s.jobs
}

func TestSessionCleanupTask_RunNow(t *testing.T) {
	ev := &stubEvictor{carts: 2, jobs: 3}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	task := NewSessionCleanupTask(ev, ev, 30*time.Minute, "@every 1m", zap.NewNop())
	task.now = func() time.Time { return now }

	carts, jobs := task.RunNow()
	assert.Equal(t, 2, carts)
	assert.Equal(t, 3, jobs)
	assert.Equal(t, now.Add(-30*time.Minute), ev.before)

	// 只配置了报价单
	task = NewSessionCleanupTask(ev, nil, 0, "@every 1m", zap.NewNop())
	carts, jobs = task.RunNow()
	assert.Equal(t, 2, carts)
	assert.Zero(t, jobs)

	require.NoError(t, task.Start())
	task.Stop()
}

// ==================== TaskManager ====================

func TestTaskManager(t *testing.T) {
	db := setupTaskTestDB(t)
	batch := &stubBatch{}
	deps := TaskManagerDeps{
		Finder:      &stubFinder{ids: []string{"A"}},
		Batch:       batch,
		CallLogRepo: repository.NewAICallLogRepository(db),
		Carts:       &stubEvictor{carts: 1},
	}

	tm := NewTaskManager(deps, config.TaskConfig{}, zap.NewNop())
	assert.Equal(t, map[string]bool{"image_backfill": false, "log_cleanup": false, "session_cleanup": false}, tm.Status())
	_, _, err := tm.TriggerBackfill(context.Background())
	assert.ErrorIs(t, err, ErrTaskDisabled)

	tm = NewTaskManager(deps, config.TaskConfig{
		BackfillEnabled:    true,
		BackfillCron:       "0 0 3 * * *",
		LogCleanupCron:     "0 30 4 * * *",
		LogRetentionDays:   30,
		SessionCleanupCron: "0 */10 * * * *",
	}, zap.NewNop())
	assert.Equal(t, map[string]bool{"image_backfill": true, "log_cleanup": true, "session_cleanup": true}, tm.Status())

	require.NoError(t, tm.Start())
	jobID, n, err := tm.TriggerBackfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, 1, n)
	tm.Stop()
}
