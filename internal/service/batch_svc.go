package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// BatchStatus 单个商品的生图状态
type BatchStatus string

const (
	BatchStatusIdle       BatchStatus = "idle"
	BatchStatusGenerating BatchStatus = "generating"
	BatchStatusSuccess    BatchStatus = "success"
	BatchStatusError      BatchStatus = "error"
)

// ProductImageGenerator 按商品 id 生成并保存图片
type ProductImageGenerator interface {
	GenerateForProduct(ctx context.Context, id string) (model.Product, error)
}

// BatchJob 批量任务快照
type BatchJob struct {
	ID         string                 `json:"id"`
	Statuses   map[string]BatchStatus `json:"statuses"`
	Errors     map[string]string      `json:"errors,omitempty"`
	Total      int                    `json:"total"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Done       bool                   `json:"done"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

type batchJob struct {
	BatchJob
	done chan struct{}
}

// BatchImageService 批量生成商品图
// 同一时间只跑一个任务；任务结束一段时间后成功的条目从状态表里清掉，失败的保留
type BatchImageService struct {
	generator   ProductImageGenerator
	concurrency int
	retain      time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*batchJob
	running string
}

// NewBatchImageService 创建批量生图服务
func NewBatchImageService(generator ProductImageGenerator, concurrency int, retain time.Duration, logger *zap.Logger) *BatchImageService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if retain <= 0 {
		retain = 2 * time.Second
	}
	return &BatchImageService{
		generator:   generator,
		concurrency: concurrency,
		retain:      retain,
		logger:      logger,
		jobs:        make(map[string]*batchJob),
	}
}

// Start 启动批量任务，立即返回任务 id
// 任务在后台运行，不受调用方请求上下文取消的影响
func (s *BatchImageService) Start(ctx context.Context, ids []string) (string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: 商品列表为空", errs.ErrValidation)
	}

	s.mu.Lock()
	if s.running != "" {
		s.mu.Unlock()
		return "", errs.ErrBatchBusy
	}

	job := &batchJob{
		BatchJob: BatchJob{
			ID:        uuid.NewString(),
			Statuses:  make(map[string]BatchStatus, len(ids)),
			Errors:    make(map[string]string),
			Total:     len(ids),
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	for _, id := range ids {
		job.Statuses[id] = BatchStatusGenerating
	}
	s.jobs[job.ID] = job
	s.running = job.ID
	s.mu.Unlock()

	s.logger.Info("批量生图开始", zap.String("job_id", job.ID), zap.Int("total", len(ids)))
	go s.run(context.WithoutCancel(ctx), job, ids)
	return job.ID, nil
}

func (s *BatchImageService) run(ctx context.Context, job *batchJob, ids []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			_, err := s.generator.GenerateForProduct(gctx, id)
			s.setStatus(job, id, err)
			// 单个失败不影响其它商品
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	now := time.Now()
	job.Done = true
	job.FinishedAt = &now
	s.running = ""
	succeeded, failed := job.Succeeded, job.Failed
	s.mu.Unlock()
	close(job.done)

	s.logger.Info("批量生图结束",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	time.AfterFunc(s.retain, func() { s.clearSucceeded(job) })
}

func (s *BatchImageService) setStatus(job *batchJob, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		job.Statuses[id] = BatchStatusError
		job.Errors[id] = err.Error()
		job.Failed++
		s.logger.Warn("商品生图失败", zap.String("job_id", job.ID), zap.String("product_id", id), zap.Error(err))
		return
	}
	job.Statuses[id] = BatchStatusSuccess
	job.Succeeded++
}

func (s *BatchImageService) clearSucceeded(job *batchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range job.Statuses {
		if st == BatchStatusSuccess {
			delete(job.Statuses, id)
		}
	}
}

// Status 任务快照；不在状态表里的商品视为 idle
func (s *BatchImageService) Status(jobID string) (BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return BatchJob{}, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}

	out := job.BatchJob
	out.Statuses = make(map[string]BatchStatus, len(job.Statuses))
	for id, st := range job.Statuses {
		out.Statuses[id] = st
	}
	out.Errors = make(map[string]string, len(job.Errors))
	for id, msg := range job.Errors {
		out.Errors[id] = msg
	}
	return out, nil
}

// ProductStatus 某商品在任务中的状态
func (s *BatchImageService) ProductStatus(jobID, productID string) (BatchStatus, error) {
	job, err := s.Status(jobID)
	if err != nil {
		return "", err
	}
	if st, ok := job.Statuses[productID]; ok {
		return st, nil
	}
	return BatchStatusIdle, nil
}

// EvictFinished 删除 before 之前已结束的任务，返回删除数量
func (s *BatchImageService) EvictFinished(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, job := range s.jobs {
		if job.Done && job.FinishedAt != nil && job.FinishedAt.Before(before) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Running 当前正在执行的任务 id，没有时为空
func (s *BatchImageService) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait 阻塞到任务结束
func (s *BatchImageService) Wait(ctx context.Context, jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}

	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
