package task

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"obra_catalog/pkg/errs"
)

// ==================== ImageBackfillTask 缺图补全任务 ====================

// MissingImageFinder 查找缺图商品
type MissingImageFinder interface {
	MissingImageIDs(ctx context.Context) ([]string, error)
}

// BatchStarter 启动批量生图
type BatchStarter interface {
	Start(ctx context.Context, ids []string) (string, error)
}

// ImageBackfillTask 定时为缺图商品生成图片
// 已有批量任务在跑时本轮跳过
type ImageBackfillTask struct {
	finder    MissingImageFinder
	batch     BatchStarter
	cron      *cron.Cron
	spec      string
	maxPerRun int
	logger    *zap.Logger
}

// NewImageBackfillTask 创建补图任务，spec 为带秒的 cron 表达式
func NewImageBackfillTask(finder MissingImageFinder, batch BatchStarter, spec string, maxPerRun int, logger *zap.Logger) *ImageBackfillTask {
	return &ImageBackfillTask{
		finder:    finder,
		batch:     batch,
		cron:      cron.New(cron.WithSeconds()),
		spec:      spec,
		maxPerRun: maxPerRun,
		logger:    logger,
	}
}

// Start 启动定时任务
func (t *ImageBackfillTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, _, err := t.RunNow(ctx); err != nil {
			t.logger.Warn("补图任务执行失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("补图任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务，等待正在执行的回调结束
func (t *ImageBackfillTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("补图任务已停止")
}

// RunNow 立即执行一轮，返回批量任务 id 和本轮商品数
// 没有缺图商品或已有任务在执行时 jobID 为空且不返回错误
func (t *ImageBackfillTask) RunNow(ctx context.Context) (string, int, error) {
	ids, err := t.finder.MissingImageIDs(ctx)
	if err != nil {
		return "", 0, err
	}
	if len(ids) == 0 {
		t.logger.Debug("没有缺图商品")
		return "", 0, nil
	}
	if t.maxPerRun > 0 && len(ids) > t.maxPerRun {
		ids = ids[:t.maxPerRun]
	}

	jobID, err := t.batch.Start(ctx, ids)
	if errors.Is(err, errs.ErrBatchBusy) {
		t.logger.Info("已有批量任务在执行，本轮跳过")
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}

	t.logger.Info("补图任务已提交", zap.String("job_id", jobID), zap.Int("count", len(ids)))
	return jobID, len(ids), nil
}
